package repository

import (
	"time"

	"go-rental-store/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InstallmentRepository interface {
	CreateBatch(tx *gorm.DB, installments []model.Installment) error
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Installment, error)
	ApplyPayment(tx *gorm.DB, id uuid.UUID, amountPaid decimal.Decimal, status string, paidAt time.Time) error
}

type installmentRepo struct {
	db *gorm.DB
}

func NewInstallmentRepo(db *gorm.DB) InstallmentRepository {
	return &installmentRepo{db}
}

func (r *installmentRepo) CreateBatch(tx *gorm.DB, installments []model.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	return conn(r.db, tx).Create(&installments).Error
}

func (r *installmentRepo) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Installment, error) {
	var inst model.Installment
	if err := forUpdate(conn(r.db, tx)).First(&inst, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &inst, nil
}

func (r *installmentRepo) ApplyPayment(tx *gorm.DB, id uuid.UUID, amountPaid decimal.Decimal, status string, paidAt time.Time) error {
	return conn(r.db, tx).Model(&model.Installment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"amount_paid": amountPaid,
			"status":      status,
			"paid_at":     paidAt,
		}).Error
}
