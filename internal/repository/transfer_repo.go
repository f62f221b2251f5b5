package repository

import (
	"time"

	"go-rental-store/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transfer directions relative to a store
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
	DirectionAll      = "all"
)

// TransferFilter narrows the transfer listing. A nil StoreID lists every transfer.
type TransferFilter struct {
	StoreID   *uuid.UUID
	Direction string
	Status    string
	Page      Page
}

type TransferRepository interface {
	Create(tx *gorm.DB, transfer *model.ProductTransfer) error
	FindByID(tx *gorm.DB, id uuid.UUID) (*model.ProductTransfer, error)
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.ProductTransfer, error)
	FindAll(filter TransferFilter) ([]model.ProductTransfer, error)
	// Complete marks an in_transit transfer as received. It reports whether a row changed.
	Complete(tx *gorm.DB, id, receivedBy uuid.UUID, at time.Time) (bool, error)
	// Cancel marks an in_transit transfer as cancelled. It reports whether a row changed.
	Cancel(tx *gorm.DB, id uuid.UUID) (bool, error)
}

type transferRepo struct {
	db *gorm.DB
}

func NewTransferRepo(db *gorm.DB) TransferRepository {
	return &transferRepo{db}
}

func (r *transferRepo) Create(tx *gorm.DB, transfer *model.ProductTransfer) error {
	return conn(r.db, tx).Omit("Product", "FromStore", "ToStore").Create(transfer).Error
}

func (r *transferRepo) FindByID(tx *gorm.DB, id uuid.UUID) (*model.ProductTransfer, error) {
	var transfer model.ProductTransfer
	err := conn(r.db, tx).
		Preload("Product").Preload("FromStore").Preload("ToStore").
		First(&transfer, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &transfer, nil
}

func (r *transferRepo) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.ProductTransfer, error) {
	var transfer model.ProductTransfer
	if err := forUpdate(conn(r.db, tx)).First(&transfer, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &transfer, nil
}

func (r *transferRepo) FindAll(filter TransferFilter) ([]model.ProductTransfer, error) {
	var transfers []model.ProductTransfer
	q := r.db.Preload("Product").Preload("FromStore").Preload("ToStore")

	if filter.StoreID != nil {
		switch filter.Direction {
		case DirectionOutgoing:
			q = q.Where("from_store_id = ?", *filter.StoreID)
		case DirectionAll:
			q = q.Where("from_store_id = ? OR to_store_id = ?", *filter.StoreID, *filter.StoreID)
		default:
			q = q.Where("to_store_id = ?", *filter.StoreID)
		}
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	err := filter.Page.apply(q.Order("requested_at DESC"), 200).Find(&transfers).Error
	return transfers, err
}

func (r *transferRepo) Complete(tx *gorm.DB, id, receivedBy uuid.UUID, at time.Time) (bool, error) {
	res := conn(r.db, tx).Model(&model.ProductTransfer{}).
		Where("id = ? AND status = ?", id, model.TransferInTransit).
		Updates(map[string]interface{}{
			"status":      model.TransferCompleted,
			"received_by": receivedBy,
			"received_at": at,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *transferRepo) Cancel(tx *gorm.DB, id uuid.UUID) (bool, error) {
	res := conn(r.db, tx).Model(&model.ProductTransfer{}).
		Where("id = ? AND status = ?", id, model.TransferInTransit).
		Update("status", model.TransferCancelled)
	return res.RowsAffected == 1, res.Error
}
