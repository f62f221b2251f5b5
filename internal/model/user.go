package model

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Roles
const (
	RoleAdmin     = "admin"
	RoleOwner     = "proprietario"
	RoleAttendant = "atendente"
	RoleClient    = "cliente"
)

// ValidRole reports whether r is one of the known roles
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleOwner, RoleAttendant, RoleClient:
		return true
	}
	return false
}

// User represents an authenticated staff member or client.
// A nil StoreID means global scope.
type User struct {
	BaseModel
	SoftDelete
	StoreID            *uuid.UUID `gorm:"type:uuid;index" json:"store_id"`
	Store              *Store     `gorm:"foreignKey:StoreID" json:"store,omitempty"`
	Name               string     `gorm:"type:varchar(255);not null" json:"name"`
	Email              string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password           string     `gorm:"type:varchar(255);not null" json:"-"`
	Role               string     `gorm:"type:varchar(20);not null;default:'atendente'" json:"role"`
	IsActive           bool       `gorm:"not null;default:true" json:"is_active"`
	MustChangePassword bool       `gorm:"not null;default:false" json:"must_change_password"`
	AvatarURL          string     `gorm:"type:varchar(500)" json:"avatar_url"`
	TokenVersion       string     `gorm:"type:varchar(64);default:''" json:"-"`

	ResetTokenHash    string     `gorm:"type:varchar(64);index" json:"-"`
	ResetTokenExpires *time.Time `json:"-"`
}

// SetPassword hashes and sets the user's password
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// UserResponse is used for API responses (without sensitive data)
type UserResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	Role               string     `json:"role"`
	StoreID            *uuid.UUID `json:"store_id"`
	StoreName          string     `json:"store_name,omitempty"`
	IsActive           bool       `json:"is_active"`
	MustChangePassword bool       `json:"must_change_password"`
	AvatarURL          string     `json:"avatar_url,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	resp := UserResponse{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		Role:               u.Role,
		StoreID:            u.StoreID,
		IsActive:           u.IsActive,
		MustChangePassword: u.MustChangePassword,
		AvatarURL:          u.AvatarURL,
		CreatedAt:          u.CreatedAt,
	}
	if u.Store != nil {
		resp.StoreName = u.Store.Name
	}
	return resp
}
