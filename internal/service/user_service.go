package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go-rental-store/internal/apperror"
	"go-rental-store/internal/mailer"
	"go-rental-store/internal/model"
	"go-rental-store/internal/repository"
	"go-rental-store/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmailExists    = apperror.Conflict("email already exists")
	ErrUserNotFound   = apperror.NotFound("user not found")
	ErrInvalidRole    = apperror.Validation("role must be admin, proprietario, atendente or cliente")
	ErrDeleteSelf     = apperror.Validation("you cannot delete your own account")
	ErrInvalidUpload  = apperror.Validation("only jpeg, png, webp or gif images up to 5MB are accepted")
	ErrStorageMissing = apperror.Validation("file uploads are not configured")
)

type UserService interface {
	CreateUser(ctx context.Context, caller Caller, req *CreateUserRequest) (*model.UserResponse, error)
	UpdateUser(ctx context.Context, caller Caller, id uuid.UUID, req *UpdateUserRequest) (*model.UserResponse, error)
	DeleteUser(ctx context.Context, caller Caller, id uuid.UUID) error
	GetAllUsers(ctx context.Context, storeID *uuid.UUID) ([]model.UserResponse, error)
	GetUserByID(ctx context.Context, caller Caller, id uuid.UUID) (*model.UserResponse, error)
	GetMe(ctx context.Context, caller Caller) (*model.UserResponse, error)
	UpdateMe(ctx context.Context, caller Caller, req *UpdateMeRequest) (*model.UserResponse, error)
	UpdateAvatar(ctx context.Context, caller Caller, file Upload) (*model.UserResponse, error)
}

// Upload is one multipart file handed over by the HTTP layer
type Upload struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

type CreateUserRequest struct {
	Name               string     `json:"name" validate:"required,max=255"`
	Email              string     `json:"email" validate:"required,email"`
	Password           string     `json:"password" validate:"required,min=6"`
	Role               string     `json:"role"`
	StoreID            *uuid.UUID `json:"store_id"`
	MustChangePassword *bool      `json:"must_change_password"`
}

// UpdateUserRequest only touches the fields that are present.
// An empty store_id string moves the user to global scope.
type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=255"`
	Role     *string `json:"role"`
	StoreID  *string `json:"store_id"`
	IsActive *bool   `json:"is_active"`
}

type UpdateMeRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email *string `json:"email" validate:"omitempty,email"`
}

type userService struct {
	userRepo  repository.UserRepository
	storeRepo repository.StoreRepository
	files     storage.Storage
	mail      EmailSender
	loginURL  string
}

func NewUserService(userRepo repository.UserRepository, storeRepo repository.StoreRepository, files storage.Storage, mail EmailSender, appBaseURL string) UserService {
	return &userService{
		userRepo:  userRepo,
		storeRepo: storeRepo,
		files:     files,
		mail:      mail,
		loginURL:  strings.TrimRight(appBaseURL, "/") + "/login",
	}
}

func (s *userService) CreateUser(ctx context.Context, caller Caller, req *CreateUserRequest) (*model.UserResponse, error) {
	// 1. Validate request
	if err := validate(req); err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = model.RoleAttendant
	}
	if !model.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	// 2. Store must exist when given
	if req.StoreID != nil {
		if _, err := s.storeRepo.FindByID(nil, *req.StoreID); err != nil {
			return nil, notFound(err, ErrStoreNotFound.Message)
		}
	}

	// 3. Build user; new accounts change the temporary password on first login by default
	mustChange := true
	if req.MustChangePassword != nil {
		mustChange = *req.MustChangePassword
	}
	user := &model.User{
		Name:               req.Name,
		Email:              strings.ToLower(strings.TrimSpace(req.Email)),
		Role:               role,
		StoreID:            req.StoreID,
		IsActive:           true,
		MustChangePassword: mustChange,
		TokenVersion:       uuid.NewString(),
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, apperror.Internal(err, "failed to hash password")
	}

	// 4. Save; the unique index decides duplicates
	if err := s.userRepo.Create(user); err != nil {
		return nil, dbError(err, ErrEmailExists.Message, "")
	}

	s.sendWelcome(ctx, user)

	resp := user.ToResponse()
	return &resp, nil
}

func (s *userService) sendWelcome(ctx context.Context, user *model.User) {
	if s.mail == nil {
		return
	}
	msg := mailer.Message{
		To:      user.Email,
		Subject: "Your account was created",
		Text: fmt.Sprintf("Hello %s,\n\nAn account was created for you. Sign in at %s with the password given by your administrator.\nYou will be asked to choose a new password on the first access.",
			user.Name, s.loginURL),
	}
	if err := s.mail.SendEmail(ctx, msg); err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to send welcome email")
	}
}

func (s *userService) UpdateUser(ctx context.Context, caller Caller, id uuid.UUID, req *UpdateUserRequest) (*model.UserResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound.Message)
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Role != nil {
		if !model.ValidRole(*req.Role) {
			return nil, ErrInvalidRole
		}
		user.Role = *req.Role
	}
	if req.StoreID != nil {
		if *req.StoreID == "" {
			user.StoreID = nil
		} else {
			storeID, err := uuid.Parse(*req.StoreID)
			if err != nil {
				return nil, apperror.Validation("invalid store_id")
			}
			if _, err := s.storeRepo.FindByID(nil, storeID); err != nil {
				return nil, notFound(err, ErrStoreNotFound.Message)
			}
			user.StoreID = &storeID
		}
		user.Store = nil
	}
	if req.IsActive != nil {
		if !*req.IsActive && user.ID == caller.UserID {
			return nil, apperror.Validation("you cannot deactivate your own account")
		}
		user.IsActive = *req.IsActive
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, dbError(err, ErrEmailExists.Message, "")
	}

	resp := user.ToResponse()
	return &resp, nil
}

func (s *userService) DeleteUser(ctx context.Context, caller Caller, id uuid.UUID) error {
	if id == caller.UserID {
		return ErrDeleteSelf
	}
	if err := s.userRepo.SoftDelete(id); err != nil {
		return notFound(err, ErrUserNotFound.Message)
	}
	return nil
}

func (s *userService) GetAllUsers(ctx context.Context, storeID *uuid.UUID) ([]model.UserResponse, error) {
	users, err := s.userRepo.FindAll(storeID)
	if err != nil {
		return nil, err
	}

	responses := make([]model.UserResponse, len(users))
	for i := range users {
		responses[i] = users[i].ToResponse()
	}
	return responses, nil
}

// GetUserByID lets scoped callers see only users of their own store
func (s *userService) GetUserByID(ctx context.Context, caller Caller, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound.Message)
	}
	if user.ID != caller.UserID && !caller.IsGlobal() {
		if user.StoreID == nil || *user.StoreID != *caller.StoreID {
			return nil, ErrStoreForbidden
		}
	}

	resp := user.ToResponse()
	return &resp, nil
}

func (s *userService) GetMe(ctx context.Context, caller Caller) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(caller.UserID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound.Message)
	}
	resp := user.ToResponse()
	return &resp, nil
}

func (s *userService) UpdateMe(ctx context.Context, caller Caller, req *UpdateMeRequest) (*model.UserResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(caller.UserID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound.Message)
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, dbError(err, ErrEmailExists.Message, "")
	}
	resp := user.ToResponse()
	return &resp, nil
}

func (s *userService) UpdateAvatar(ctx context.Context, caller Caller, file Upload) (*model.UserResponse, error) {
	if s.files == nil {
		return nil, ErrStorageMissing
	}
	if file.Size > storage.MaxImageSize {
		return nil, ErrInvalidUpload
	}
	key, err := storage.ImageKey("avatars/"+caller.UserID.String(), file.ContentType)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			return nil, ErrInvalidUpload
		}
		return nil, err
	}

	user, err := s.userRepo.FindByID(caller.UserID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound.Message)
	}

	url, err := s.files.Put(ctx, key, file.ContentType, file.Body, file.Size)
	if err != nil {
		return nil, apperror.Internal(err, "failed to store avatar")
	}
	user.AvatarURL = url
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	resp := user.ToResponse()
	return &resp, nil
}
