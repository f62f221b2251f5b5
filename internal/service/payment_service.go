package service

import (
	"context"

	"go-rental-store/internal/apperror"
	"go-rental-store/internal/model"
	"go-rental-store/internal/repository"
	"go-rental-store/pkg/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// paidEpsilon absorbs cent rounding when deciding an installment is fully paid
var paidEpsilon = decimal.RequireFromString("0.01")

var (
	ErrInstallmentNotFound = apperror.NotFound("installment not found for this rental")
	ErrPaymentOnCancelled  = apperror.Validation("cannot register payments on a cancelled rental")
)

type PaymentService interface {
	CreatePayment(ctx context.Context, caller Caller, req *CreatePaymentRequest) (*model.Payment, error)
	ListPaymentsByRental(ctx context.Context, caller Caller, rentalID uuid.UUID) ([]model.Payment, error)
}

type CreatePaymentRequest struct {
	RentalID      uuid.UUID       `json:"rental_id" validate:"uuid_required"`
	InstallmentID *uuid.UUID      `json:"installment_id"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	PaymentMethod string          `json:"payment_method" validate:"required,max=30"`
	Notes         string          `json:"notes"`
}

type paymentService struct {
	paymentRepo     repository.PaymentRepository
	rentalRepo      repository.RentalRepository
	installmentRepo repository.InstallmentRepository
	db              *gorm.DB
	notifier        Notifier
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	rentalRepo repository.RentalRepository,
	installmentRepo repository.InstallmentRepository,
	db *gorm.DB,
	notifier Notifier,
) PaymentService {
	return &paymentService{
		paymentRepo:     paymentRepo,
		rentalRepo:      rentalRepo,
		installmentRepo: installmentRepo,
		db:              db,
		notifier:        notifierOrNoop(notifier),
	}
}

func (s *paymentService) CreatePayment(ctx context.Context, caller Caller, req *CreatePaymentRequest) (*model.Payment, error) {
	// 1. Validate request
	if err := validate(req); err != nil {
		return nil, err
	}

	var (
		payment *model.Payment
		storeID uuid.UUID
	)
	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		// 2. Rental and store policy
		rental, err := s.rentalRepo.FindByIDForUpdate(tx, req.RentalID)
		if err != nil {
			return notFound(err, ErrRentalNotFound.Message)
		}
		if err := AuthorizeStore(caller, rental.StoreID); err != nil {
			return err
		}
		if rental.Status == model.RentalCancelled {
			return ErrPaymentOnCancelled
		}
		storeID = rental.StoreID

		// 3. Installment must belong to the rental; locked so concurrent payments add up
		var inst *model.Installment
		if req.InstallmentID != nil {
			inst, err = s.installmentRepo.FindByIDForUpdate(tx, *req.InstallmentID)
			if err != nil {
				return notFound(err, ErrInstallmentNotFound.Message)
			}
			if inst.RentalID != rental.ID {
				return ErrInstallmentNotFound
			}
		}

		// 4. Receipt
		now := nowFunc()
		payment = &model.Payment{
			RentalID:      rental.ID,
			InstallmentID: req.InstallmentID,
			UserID:        caller.UserID,
			Amount:        req.Amount,
			PaymentMethod: req.PaymentMethod,
			PaidAt:        now,
			Notes:         req.Notes,
		}
		if err := s.paymentRepo.Create(tx, payment); err != nil {
			return err
		}

		if inst == nil {
			return nil
		}

		// 5. Accumulate
		paid := inst.AmountPaid.Add(req.Amount)
		return s.installmentRepo.ApplyPayment(tx, inst.ID, paid, installmentStatus(paid, inst.Value), now)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish("payment.created", []uuid.UUID{storeID}, map[string]interface{}{
		"id":             payment.ID,
		"rental_id":      payment.RentalID,
		"installment_id": payment.InstallmentID,
		"amount":         payment.Amount,
	})
	return payment, nil
}

func installmentStatus(paid, value decimal.Decimal) string {
	if paid.GreaterThanOrEqual(value.Sub(paidEpsilon)) {
		return model.InstallmentPaid
	}
	return model.InstallmentPartiallyPaid
}

func (s *paymentService) ListPaymentsByRental(ctx context.Context, caller Caller, rentalID uuid.UUID) ([]model.Payment, error) {
	rental, err := s.rentalRepo.FindByID(nil, rentalID)
	if err != nil {
		return nil, notFound(err, ErrRentalNotFound.Message)
	}
	if err := AuthorizeStore(caller, rental.StoreID); err != nil {
		return nil, err
	}
	return s.paymentRepo.FindByRental(rentalID)
}
