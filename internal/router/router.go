package router

import (
	"strings"
	"time"

	"go-rental-store/internal/handler"
	"go-rental-store/internal/middleware"
	"go-rental-store/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// Handlers groups every HTTP handler the API exposes
type Handlers struct {
	Auth     *handler.AuthHandler
	User     *handler.UserHandler
	Customer *handler.CustomerHandler
	Category *handler.CategoryHandler
	Product  *handler.ProductHandler
	Rental   *handler.RentalHandler
	Payment  *handler.PaymentHandler
	Store    *handler.StoreHandler
	Transfer *handler.TransferHandler
	Health   *handler.HealthHandler
	WS       *handler.WSHandler
}

// Options carries the cross-cutting settings of the route table
type Options struct {
	Auth            middleware.Authenticator
	Limiter         middleware.Limiter
	CORSOrigins     string
	LoginRateLimit  int
	LoginRateWindow time.Duration
	APIRateLimit    int
	APIRateWindow   time.Duration
	UploadsDir      string // served under /uploads when the local storage driver is used
}

// New builds the fiber app with the shared error handler
func New(appName string) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      appName,
		ErrorHandler: handler.ErrorHandler,
		BodyLimit:    60 << 20,
	})
}

// Setup registers middleware and every route on app
func Setup(app *fiber.App, h Handlers, opts Options) {
	// Middleware
	app.Use(middleware.RequestIDs())
	app.Use(middleware.Logger())
	app.Use(middleware.Recovery())
	app.Use(cors.New(corsConfig(opts.CORSOrigins)))

	app.Get("/health", h.Health.Health)
	if opts.UploadsDir != "" {
		app.Static("/uploads", opts.UploadsDir)
	}

	requireAuth := middleware.RequireAuth(opts.Auth)
	adminOnly := middleware.RequireRole(model.RoleAdmin)
	loginLimit := middleware.RateLimit(opts.Limiter, "login", opts.LoginRateLimit, opts.LoginRateWindow,
		"too many login attempts, please try again later")
	apiLimit := middleware.RateLimit(opts.Limiter, "api", opts.APIRateLimit, opts.APIRateWindow,
		"too many requests, please try again later")

	api := app.Group("/api")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", loginLimit, h.Auth.Login)
	auth.Post("/forgot-password", apiLimit, h.Auth.ForgotPassword)
	auth.Post("/reset-password/:token", apiLimit, h.Auth.ResetPassword)
	auth.Post("/change-password", apiLimit, middleware.RequirePasswordChange(opts.Auth), h.Auth.ChangePassword)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", apiLimit, requireAuth)

	users := protected.Group("/users")
	users.Get("/me", h.User.GetMe)
	users.Put("/me", h.User.UpdateMe)
	users.Patch("/avatar", h.User.UpdateAvatar)
	users.Get("/", adminOnly, h.User.GetUsers)
	users.Post("/", adminOnly, h.User.CreateUser)
	users.Get("/:id", h.User.GetUser)
	users.Put("/:id", adminOnly, h.User.UpdateUser)
	users.Delete("/:id", adminOnly, h.User.DeleteUser)

	stores := protected.Group("/stores")
	stores.Get("/", h.Store.GetStores)
	stores.Get("/:id", h.Store.GetStore)
	stores.Post("/", adminOnly, h.Store.CreateStore)
	stores.Put("/:id", adminOnly, h.Store.UpdateStore)

	categories := protected.Group("/categories")
	categories.Get("/", h.Category.GetCategories)
	categories.Post("/", h.Category.CreateCategory)
	categories.Get("/:id", h.Category.GetCategory)
	categories.Put("/:id", h.Category.UpdateCategory)
	categories.Delete("/:id", h.Category.DeleteCategory)

	customers := protected.Group("/customers")
	customers.Get("/", h.Customer.GetCustomers)
	customers.Post("/", h.Customer.CreateCustomer)
	customers.Get("/:id", h.Customer.GetCustomer)
	customers.Put("/:id", h.Customer.UpdateCustomer)
	customers.Delete("/:id/hard", adminOnly, h.Customer.HardDeleteCustomer)
	customers.Delete("/:id", h.Customer.DeleteCustomer)

	products := protected.Group("/products")
	products.Get("/", h.Product.GetProducts)
	products.Post("/", h.Product.CreateProduct)
	products.Get("/:id", h.Product.GetProduct)
	products.Put("/:id", h.Product.UpdateProduct)
	products.Delete("/:id", h.Product.DeleteProduct)

	rentals := protected.Group("/rentals")
	rentals.Get("/", h.Rental.GetRentals)
	rentals.Post("/", h.Rental.CreateRental)
	rentals.Get("/:id", h.Rental.GetRental)
	rentals.Post("/:id/pickup", h.Rental.PickUpRental)
	rentals.Post("/:id/return", h.Rental.ReturnRental)
	rentals.Post("/:id/cancel", h.Rental.CancelRental)

	payments := protected.Group("/payments")
	payments.Post("/", h.Payment.CreatePayment)
	payments.Get("/rental/:rentalId", h.Payment.GetRentalPayments)

	transfers := protected.Group("/transfers")
	transfers.Get("/", h.Transfer.GetTransfers)
	transfers.Post("/request", h.Transfer.RequestTransfer)
	transfers.Post("/receive", h.Transfer.ReceiveTransfer)
	transfers.Get("/:id", h.Transfer.GetTransfer)
	transfers.Post("/:id/cancel", h.Transfer.CancelTransfer)

	// WebSocket Route
	app.Get("/ws", h.WS.Upgrade, h.WS.Serve())
}

func corsConfig(origins string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders: "X-Request-ID,Retry-After",
	}
	origins = strings.TrimSpace(origins)
	if origins == "" || origins == "*" {
		cfg.AllowOrigins = "*"
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
