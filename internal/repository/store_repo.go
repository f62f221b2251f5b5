package repository

import (
	"go-rental-store/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StoreRepository interface {
	FindAll() ([]model.Store, error)
	FindByID(tx *gorm.DB, id uuid.UUID) (*model.Store, error)
	Create(store *model.Store) error
	Update(store *model.Store) error
}

type storeRepo struct {
	db *gorm.DB
}

func NewStoreRepo(db *gorm.DB) StoreRepository {
	return &storeRepo{db}
}

func (r *storeRepo) FindAll() ([]model.Store, error) {
	var stores []model.Store
	err := r.db.Order("name ASC").Find(&stores).Error
	return stores, err
}

func (r *storeRepo) FindByID(tx *gorm.DB, id uuid.UUID) (*model.Store, error) {
	var store model.Store
	if err := conn(r.db, tx).First(&store, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &store, nil
}

func (r *storeRepo) Create(store *model.Store) error {
	return r.db.Create(store).Error
}

func (r *storeRepo) Update(store *model.Store) error {
	return r.db.Save(store).Error
}
