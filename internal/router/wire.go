package router

import (
	"time"

	"go-rental-store/internal/handler"
	"go-rental-store/internal/repository"
	"go-rental-store/internal/service"
	"go-rental-store/internal/storage"
	"go-rental-store/internal/ws"
	"go-rental-store/pkg/jwt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the process-level resources the handlers are built from
type Deps struct {
	DB            *gorm.DB
	Redis         *redis.Client // optional
	Hub           *ws.Hub
	Tokens        *jwt.Manager
	Files         storage.Storage // optional
	Mail          service.EmailSender
	AppBaseURL    string
	ResetTokenTTL time.Duration
}

// NewHandlers wires repositories, services and handlers.
// The auth service is returned too since middleware authenticates through it.
func NewHandlers(d Deps) (Handlers, service.AuthService) {
	// Repositories
	storeRepo := repository.NewStoreRepo(d.DB)
	userRepo := repository.NewUserRepo(d.DB)
	customerRepo := repository.NewCustomerRepo(d.DB)
	categoryRepo := repository.NewCategoryRepo(d.DB)
	productRepo := repository.NewProductRepo(d.DB)
	rentalRepo := repository.NewRentalRepo(d.DB)
	installmentRepo := repository.NewInstallmentRepo(d.DB)
	paymentRepo := repository.NewPaymentRepo(d.DB)
	transferRepo := repository.NewTransferRepo(d.DB)

	var notifier service.Notifier
	if d.Hub != nil {
		notifier = d.Hub
	}

	// Services
	authService := service.NewAuthService(userRepo, d.Tokens, d.Mail, service.AuthOptions{
		ResetTokenTTL: d.ResetTokenTTL,
		AppBaseURL:    d.AppBaseURL,
	})
	userService := service.NewUserService(userRepo, storeRepo, d.Files, d.Mail, d.AppBaseURL)
	storeService := service.NewStoreService(storeRepo)
	customerService := service.NewCustomerService(customerRepo, d.DB)
	categoryService := service.NewCategoryService(categoryRepo)
	productService := service.NewProductService(productRepo, categoryRepo, storeRepo, d.Files, d.DB, notifier)
	rentalService := service.NewRentalService(rentalRepo, installmentRepo, productRepo, customerRepo, storeRepo, d.DB, notifier)
	paymentService := service.NewPaymentService(paymentRepo, rentalRepo, installmentRepo, d.DB, notifier)
	transferService := service.NewTransferService(transferRepo, productRepo, storeRepo, d.DB, notifier)

	return Handlers{
		Auth:     handler.NewAuthHandler(authService),
		User:     handler.NewUserHandler(userService),
		Customer: handler.NewCustomerHandler(customerService),
		Category: handler.NewCategoryHandler(categoryService),
		Product:  handler.NewProductHandler(productService),
		Rental:   handler.NewRentalHandler(rentalService),
		Payment:  handler.NewPaymentHandler(paymentService),
		Store:    handler.NewStoreHandler(storeService),
		Transfer: handler.NewTransferHandler(transferService),
		Health:   handler.NewHealthHandler(d.DB, d.Redis),
		WS:       handler.NewWSHandler(d.Hub, authService),
	}, authService
}
