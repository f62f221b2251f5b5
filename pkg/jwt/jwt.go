package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")
)

// Token purposes
const (
	PurposeAccess         = "access"
	PurposePasswordChange = "password_change"
)

const issuer = "go-rental-store"

// Claims represents the JWT claims structure
type Claims struct {
	UserID       uuid.UUID  `json:"user_id"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	StoreID      *uuid.UUID `json:"store_id"`
	Purpose      string     `json:"purpose"`
	TokenVersion string     `json:"token_version"`
	jwt.RegisteredClaims
}

// Subject is the identity a token is issued for
type Subject struct {
	UserID       uuid.UUID
	Email        string
	Role         string
	StoreID      *uuid.UUID
	TokenVersion string
}

// Manager issues and verifies HS256 tokens
type Manager struct {
	secret    []byte
	accessTTL time.Duration
	changeTTL time.Duration
}

func NewManager(secret string, accessTTL, changeTTL time.Duration) *Manager {
	return &Manager{secret: []byte(secret), accessTTL: accessTTL, changeTTL: changeTTL}
}

// GenerateToken creates a full access token
func (m *Manager) GenerateToken(sub Subject) (string, error) {
	return m.sign(sub, PurposeAccess, m.accessTTL)
}

// GeneratePasswordChangeToken creates a short lived token that only unlocks change-password
func (m *Manager) GeneratePasswordChangeToken(sub Subject) (string, error) {
	return m.sign(sub, PurposePasswordChange, m.changeTTL)
}

func (m *Manager) sign(sub Subject, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:       sub.UserID,
		Email:        sub.Email,
		Role:         sub.Role,
		StoreID:      sub.StoreID,
		Purpose:      purpose,
		TokenVersion: sub.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and validates a JWT token
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
