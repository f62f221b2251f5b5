package service

import (
	"context"
	"errors"
	"time"

	"go-rental-store/internal/apperror"
	"go-rental-store/internal/mailer"
	"go-rental-store/internal/model"
	"go-rental-store/internal/repository"
	"go-rental-store/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Caller is the authenticated user performing an operation.
// A nil StoreID means the caller is global and may act on every store.
type Caller struct {
	UserID  uuid.UUID
	Email   string
	Role    string
	StoreID *uuid.UUID
}

func (c Caller) IsGlobal() bool { return c.StoreID == nil }

func (c Caller) IsAdmin() bool { return c.Role == model.RoleAdmin }

// ErrStoreForbidden is returned whenever a store-scoped caller touches another store
var ErrStoreForbidden = apperror.Forbidden("access denied: resource belongs to another store")

// AuthorizeStore is the single store-scope policy: global callers pass,
// scoped callers only for their own store.
func AuthorizeStore(c Caller, storeID uuid.UUID) error {
	if c.IsGlobal() || *c.StoreID == storeID {
		return nil
	}
	return ErrStoreForbidden
}

// AuthorizeAnyStore passes when the caller may act on at least one of the stores
func AuthorizeAnyStore(c Caller, storeIDs ...uuid.UUID) error {
	for _, id := range storeIDs {
		if AuthorizeStore(c, id) == nil {
			return nil
		}
	}
	return ErrStoreForbidden
}

// scopeFilter returns the store a listing must be restricted to.
// Scoped callers are pinned to their store; global callers may pick one or none.
func scopeFilter(c Caller, requested *uuid.UUID) *uuid.UUID {
	if !c.IsGlobal() {
		return c.StoreID
	}
	return requested
}

// Notifier publishes domain events to connected clients
type Notifier interface {
	Publish(eventType string, storeIDs []uuid.UUID, data any)
}

// EmailSender delivers or queues an email
type EmailSender interface {
	SendEmail(ctx context.Context, msg mailer.Message) error
}

type noopNotifier struct{}

func (noopNotifier) Publish(string, []uuid.UUID, any) {}

func notifierOrNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

// validate runs struct tags and turns the first failure into a 400
func validate(req interface{}) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		first := errs[0]
		return apperror.Validationf("validation failed: field '%s' failed on '%s'", first.FailedField, first.Tag)
	}
	return nil
}

// notFound maps repository.ErrNotFound to a 404 with msg and keeps other errors as they are
func notFound(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound(msg)
	}
	return err
}

// dbError maps constraint violations to client errors
func dbError(err error, duplicateMsg, referencedMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey) && duplicateMsg != "":
		return apperror.Conflict(duplicateMsg)
	case errors.Is(err, gorm.ErrForeignKeyViolated) && referencedMsg != "":
		return apperror.Validation(referencedMsg)
	}
	return err
}

// parseDate accepts YYYY-MM-DD or RFC3339
func parseDate(field, value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, apperror.Validationf("invalid %s, use YYYY-MM-DD", field)
}

var nowFunc = time.Now
