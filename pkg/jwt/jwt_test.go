package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewManager("test-secret-0123456789-abcdefghij", time.Hour, 15*time.Minute)
	store := uuid.New()
	sub := Subject{UserID: uuid.New(), Email: "ana@loja.com", Role: "atendente", StoreID: &store, TokenVersion: "v1"}

	token, err := m.GenerateToken(sub)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, sub.UserID, claims.UserID)
	assert.Equal(t, "ana@loja.com", claims.Email)
	assert.Equal(t, "atendente", claims.Role)
	require.NotNil(t, claims.StoreID)
	assert.Equal(t, store, *claims.StoreID)
	assert.Equal(t, PurposeAccess, claims.Purpose)
	assert.Equal(t, "v1", claims.TokenVersion)
}

func TestPasswordChangeTokenPurpose(t *testing.T) {
	m := NewManager("test-secret-0123456789-abcdefghij", time.Hour, 15*time.Minute)

	token, err := m.GeneratePasswordChangeToken(Subject{UserID: uuid.New(), Role: "admin"})
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, PurposePasswordChange, claims.Purpose)
	assert.Nil(t, claims.StoreID)
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	a := NewManager("secret-a-0123456789-abcdefghijkl", time.Hour, time.Minute)
	b := NewManager("secret-b-0123456789-abcdefghijkl", time.Hour, time.Minute)

	token, err := a.GenerateToken(Subject{UserID: uuid.New()})
	require.NoError(t, err)

	_, err = b.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	m := NewManager("test-secret-0123456789-abcdefghij", -time.Minute, time.Minute)

	token, err := m.GenerateToken(Subject{UserID: uuid.New()})
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateEmpty(t *testing.T) {
	m := NewManager("x", time.Hour, time.Minute)
	_, err := m.ValidateToken("")
	assert.ErrorIs(t, err, ErrMissingToken)
}
