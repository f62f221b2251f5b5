package service

import (
	"errors"

	"go-rental-store/internal/model"
	"go-rental-store/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const defaultStoreName = "Loja Principal"

// SeedResult reports what EnsureAdmin changed
type SeedResult struct {
	StoreCreated    bool
	AdminCreated    bool
	PasswordUpdated bool
}

// EnsureAdmin makes sure at least one store and the global admin exist.
// With resetPassword an existing admin gets the new password and must change it on next login.
func EnsureAdmin(userRepo repository.UserRepository, storeRepo repository.StoreRepository, email, password string, resetPassword bool) (SeedResult, error) {
	var result SeedResult

	// 1. Default store
	stores, err := storeRepo.FindAll()
	if err != nil {
		return result, err
	}
	if len(stores) == 0 {
		if err := storeRepo.Create(&model.Store{Name: defaultStoreName}); err != nil {
			return result, err
		}
		result.StoreCreated = true
		log.Info().Str("store", defaultStoreName).Msg("default store created")
	}

	// 2. Admin user
	user, err := userRepo.FindByEmail(email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return result, err
	}
	if err == nil {
		if !resetPassword {
			return result, nil
		}
		if len(password) < minPasswordLen {
			return result, ErrWeakPassword
		}
		if err := user.SetPassword(password); err != nil {
			return result, err
		}
		user.MustChangePassword = true
		user.IsActive = true
		user.TokenVersion = uuid.NewString()
		if err := userRepo.Update(user); err != nil {
			return result, err
		}
		result.PasswordUpdated = true
		return result, nil
	}

	if len(password) < minPasswordLen {
		return result, ErrWeakPassword
	}
	admin := &model.User{
		Name:               "Administrador",
		Email:              email,
		Role:               model.RoleAdmin,
		IsActive:           true,
		MustChangePassword: true,
	}
	if err := admin.SetPassword(password); err != nil {
		return result, err
	}
	if err := userRepo.Create(admin); err != nil {
		return result, err
	}
	result.AdminCreated = true
	return result, nil
}
