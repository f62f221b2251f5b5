package repository

import (
	"time"

	"go-rental-store/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RentalFilter narrows the rental listing. A nil StoreID lists every store.
type RentalFilter struct {
	StoreID    *uuid.UUID
	CustomerID *uuid.UUID
	Status     string
	Page       Page
}

type RentalRepository interface {
	Create(tx *gorm.DB, rental *model.Rental) error
	CreateItems(tx *gorm.DB, items []model.RentalItem) error
	FindByID(tx *gorm.DB, id uuid.UUID) (*model.Rental, error)
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Rental, error)
	FindAll(filter RentalFilter) ([]model.RentalSummary, error)
	ProductIDs(tx *gorm.DB, rentalID uuid.UUID) ([]uuid.UUID, error)
	// TransitionStatus moves the rental to `to` only while its status is one of `from`
	TransitionStatus(tx *gorm.DB, id uuid.UUID, from []string, to string, returnedAt *time.Time) (bool, error)
}

type rentalRepo struct {
	db *gorm.DB
}

func NewRentalRepo(db *gorm.DB) RentalRepository {
	return &rentalRepo{db}
}

func (r *rentalRepo) Create(tx *gorm.DB, rental *model.Rental) error {
	return conn(r.db, tx).Omit("Store", "Customer", "Items", "Installments").Create(rental).Error
}

func (r *rentalRepo) CreateItems(tx *gorm.DB, items []model.RentalItem) error {
	if len(items) == 0 {
		return nil
	}
	return conn(r.db, tx).Omit("Product").Create(&items).Error
}

func (r *rentalRepo) FindByID(tx *gorm.DB, id uuid.UUID) (*model.Rental, error) {
	var rental model.Rental
	err := conn(r.db, tx).
		Preload("Store").
		Preload("Customer", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Items.Product").
		Preload("Installments", func(db *gorm.DB) *gorm.DB { return db.Order("number ASC") }).
		First(&rental, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rental, nil
}

func (r *rentalRepo) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Rental, error) {
	var rental model.Rental
	if err := forUpdate(conn(r.db, tx)).First(&rental, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &rental, nil
}

func (r *rentalRepo) FindAll(filter RentalFilter) ([]model.RentalSummary, error) {
	var rows []model.RentalSummary
	q := r.db.Table("rentals r").
		Select(`r.id, r.store_id, s.name AS store_name, r.customer_id, c.name AS customer_name,
			r.status, r.start_date, r.end_date_scheduled, r.total_amount, r.created_at`).
		Joins("JOIN customers c ON c.id = r.customer_id").
		Joins("JOIN stores s ON s.id = r.store_id")

	if filter.StoreID != nil {
		q = q.Where("r.store_id = ?", *filter.StoreID)
	}
	if filter.CustomerID != nil {
		q = q.Where("r.customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != "" {
		q = q.Where("r.status = ?", filter.Status)
	}

	err := filter.Page.apply(q.Order("r.created_at DESC"), 200).Scan(&rows).Error
	return rows, err
}

func (r *rentalRepo) ProductIDs(tx *gorm.DB, rentalID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := conn(r.db, tx).Model(&model.RentalItem{}).
		Where("rental_id = ?", rentalID).
		Pluck("product_id", &ids).Error
	return ids, err
}

func (r *rentalRepo) TransitionStatus(tx *gorm.DB, id uuid.UUID, from []string, to string, returnedAt *time.Time) (bool, error) {
	fields := map[string]interface{}{"status": to}
	if returnedAt != nil {
		fields["returned_at"] = *returnedAt
	}
	res := conn(r.db, tx).Model(&model.Rental{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(fields)
	return res.RowsAffected == 1, res.Error
}
