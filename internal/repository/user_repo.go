package repository

import (
	"time"

	"go-rental-store/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	FindByEmail(email string) (*model.User, error)
	FindByID(id uuid.UUID) (*model.User, error)
	FindByResetTokenHash(hash string, now time.Time) (*model.User, error)
	FindAll(storeID *uuid.UUID) ([]model.User, error)
	Create(user *model.User) error
	Update(user *model.User) error
	SoftDelete(id uuid.UUID) error
	PurgeExpiredResetTokens(now time.Time) (int64, error)
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db}
}

func (r *userRepo) FindByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.db.Preload("Store").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepo) FindByID(id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.Preload("Store").First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepo) FindByResetTokenHash(hash string, now time.Time) (*model.User, error) {
	var user model.User
	err := r.db.
		Where("reset_token_hash = ? AND reset_token_expires > ?", hash, now).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepo) FindAll(storeID *uuid.UUID) ([]model.User, error) {
	var users []model.User
	q := r.db.Preload("Store").Order("name ASC")
	if storeID != nil {
		q = q.Where("store_id = ?", *storeID)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) Create(user *model.User) error {
	return r.db.Create(user).Error
}

// Update writes every column, including zero values such as is_active=false
func (r *userRepo) Update(user *model.User) error {
	return r.db.Omit("Store").Save(user).Error
}

// SoftDelete stamps deleted_at; a row that is already deleted reports ErrNotFound
func (r *userRepo) SoftDelete(id uuid.UUID) error {
	res := r.db.Delete(&model.User{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) PurgeExpiredResetTokens(now time.Time) (int64, error) {
	res := r.db.Model(&model.User{}).
		Where("reset_token_expires IS NOT NULL AND reset_token_expires <= ?", now).
		Updates(map[string]interface{}{
			"reset_token_hash":    "",
			"reset_token_expires": nil,
		})
	return res.RowsAffected, res.Error
}
