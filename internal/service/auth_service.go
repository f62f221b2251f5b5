package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-rental-store/internal/apperror"
	"go-rental-store/internal/mailer"
	"go-rental-store/internal/model"
	"go-rental-store/internal/repository"
	"go-rental-store/pkg/jwt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidCredentials     = apperror.Unauthenticated("invalid email or password")
	ErrUserInactive           = apperror.Forbidden("user account is inactive")
	ErrPasswordChangeRequired = apperror.Forbidden("password change required before first access")
	ErrWrongPassword          = apperror.Validation("current password is incorrect")
	ErrCurrentPasswordMissing = apperror.Validation("current_password is required")
	ErrWeakPassword           = apperror.Validation("new password must be at least 6 characters")
	ErrInvalidResetToken      = apperror.Validation("reset token is invalid or has expired")
	ErrInvalidSession         = apperror.Unauthenticated("invalid or expired token")
	ErrSessionRevoked         = apperror.Unauthenticated("session revoked, please log in again")
	ErrTokenPurpose           = apperror.Forbidden("this token can only be used to change the password")
)

const minPasswordLen = 6

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	ChangePassword(ctx context.Context, caller Caller, purpose string, req *ChangePasswordRequest) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Authenticate(tokenString string, allowPasswordChange bool) (Caller, string, error)
}

type LoginResponse struct {
	Token string             `json:"token"`
	User  model.UserResponse `json:"user"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// AuthOptions carries the settings the auth flows depend on
type AuthOptions struct {
	ResetTokenTTL time.Duration
	AppBaseURL    string
}

type authService struct {
	userRepo repository.UserRepository
	tokens   *jwt.Manager
	mail     EmailSender
	opts     AuthOptions
}

func NewAuthService(userRepo repository.UserRepository, tokens *jwt.Manager, mail EmailSender, opts AuthOptions) AuthService {
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = 10 * time.Minute
	}
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		mail:     mail,
		opts:     opts,
	}
}

func subjectOf(u *model.User) jwt.Subject {
	return jwt.Subject{
		UserID:       u.ID,
		Email:        u.Email,
		Role:         u.Role,
		StoreID:      u.StoreID,
		TokenVersion: u.TokenVersion,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	// 1. Find user by email
	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// 2. Verify password before revealing anything about the account
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	// 3. Check if user is active
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// 4. Accounts created with a temporary password only get a password-change token
	if user.MustChangePassword {
		token, err := s.tokens.GeneratePasswordChangeToken(subjectOf(user))
		if err != nil {
			return nil, apperror.Internal(err, "failed to generate token")
		}
		return nil, ErrPasswordChangeRequired.WithCode(apperror.CodePasswordChangeRequired, map[string]interface{}{"token": token})
	}

	// 5. Accounts seeded without a version get one so they can be revoked later
	if user.TokenVersion == "" {
		user.TokenVersion = uuid.NewString()
		if err := s.userRepo.Update(user); err != nil {
			return nil, err
		}
	}

	token, err := s.tokens.GenerateToken(subjectOf(user))
	if err != nil {
		return nil, apperror.Internal(err, "failed to generate token")
	}

	return &LoginResponse{Token: token, User: user.ToResponse()}, nil
}

func (s *authService) ChangePassword(ctx context.Context, caller Caller, purpose string, req *ChangePasswordRequest) error {
	// 1. Validate request
	if err := validate(req); err != nil {
		return err
	}
	if len(req.NewPassword) < minPasswordLen {
		return ErrWeakPassword
	}

	user, err := s.userRepo.FindByID(caller.UserID)
	if err != nil {
		return notFound(err, "user not found")
	}

	// 2. Full sessions must prove the current password; the first-login token already did
	if purpose != jwt.PurposePasswordChange {
		if req.CurrentPassword == "" {
			return ErrCurrentPasswordMissing
		}
		if !user.CheckPassword(req.CurrentPassword) {
			return ErrWrongPassword
		}
	}

	// 3. Set new password and revoke every token issued before
	if err := user.SetPassword(req.NewPassword); err != nil {
		return apperror.Internal(err, "failed to hash new password")
	}
	user.MustChangePassword = false
	user.TokenVersion = uuid.NewString()

	return s.userRepo.Update(user)
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// same answer whether or not the account exists
			return nil
		}
		return err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return apperror.Internal(err, "failed to generate reset token")
	}
	token := hex.EncodeToString(raw)
	expires := nowFunc().Add(s.opts.ResetTokenTTL)

	user.ResetTokenHash = hashToken(token)
	user.ResetTokenExpires = &expires
	if err := s.userRepo.Update(user); err != nil {
		return err
	}

	link := strings.TrimRight(s.opts.AppBaseURL, "/") + "/reset-password/" + token
	msg := mailer.Message{
		To:      user.Email,
		Subject: "Password reset",
		Text: fmt.Sprintf("Hello %s,\n\nUse the link below to choose a new password. It expires in %d minutes.\n\n%s\n\nIf you did not ask for this, ignore this email.",
			user.Name, int(s.opts.ResetTokenTTL.Minutes()), link),
	}
	if s.mail != nil {
		if err := s.mail.SendEmail(ctx, msg); err != nil {
			log.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to send password reset email")
		}
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return ErrWeakPassword
	}

	user, err := s.userRepo.FindByResetTokenHash(hashToken(token), nowFunc())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	if err := user.SetPassword(newPassword); err != nil {
		return apperror.Internal(err, "failed to hash new password")
	}
	user.ResetTokenHash = ""
	user.ResetTokenExpires = nil
	user.MustChangePassword = false
	user.TokenVersion = uuid.NewString()

	return s.userRepo.Update(user)
}

// Authenticate verifies a bearer token against the stored user and returns the caller and token purpose.
// Password-change tokens are accepted only when allowPasswordChange is set.
func (s *authService) Authenticate(tokenString string, allowPasswordChange bool) (Caller, string, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return Caller{}, "", ErrInvalidSession
	}
	if claims.Purpose == jwt.PurposePasswordChange && !allowPasswordChange {
		return Caller{}, "", ErrTokenPurpose
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Caller{}, "", ErrInvalidSession
		}
		return Caller{}, "", err
	}
	if !user.IsActive {
		return Caller{}, "", ErrUserInactive
	}
	if user.TokenVersion != claims.TokenVersion {
		return Caller{}, "", ErrSessionRevoked
	}

	// role and store come from the database so changes apply without a new login
	return Caller{
		UserID:  user.ID,
		Email:   user.Email,
		Role:    user.Role,
		StoreID: user.StoreID,
	}, claims.Purpose, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
