package repository

import (
	"go-rental-store/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(tx *gorm.DB, payment *model.Payment) error
	FindByRental(rentalID uuid.UUID) ([]model.Payment, error)
}

type paymentRepo struct {
	db *gorm.DB
}

func NewPaymentRepo(db *gorm.DB) PaymentRepository {
	return &paymentRepo{db}
}

func (r *paymentRepo) Create(tx *gorm.DB, payment *model.Payment) error {
	return conn(r.db, tx).Omit("User").Create(payment).Error
}

func (r *paymentRepo) FindByRental(rentalID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.db.Model(&model.Payment{}).
		Select("payments.*, u.name AS recorded_by").
		Joins("LEFT JOIN users u ON u.id = payments.user_id").
		Where("payments.rental_id = ?", rentalID).
		Order("payments.paid_at DESC").
		Find(&payments).Error
	return payments, err
}
