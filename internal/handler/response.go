package handler

import (
	"errors"
	"strconv"

	"go-rental-store/internal/apperror"
	"go-rental-store/internal/middleware"
	"go-rental-store/internal/repository"
	"go-rental-store/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Envelope is the body of every API response.
// Status is "success", "fail" for client errors or "error" for server errors.
type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
	Results *int        `json:"results,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(Envelope{Status: "success", Data: data})
}

func created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Envelope{Status: "success", Message: message, Data: data})
}

func message(c *fiber.Ctx, msg string) error {
	return c.JSON(Envelope{Status: "success", Message: msg})
}

func list[T any](c *fiber.Ctx, items []T) error {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	return c.JSON(Envelope{Status: "success", Results: &n, Data: items})
}

// ErrorHandler renders every error returned by handlers and middleware.
// It is installed as fiber's ErrorHandler so nothing escapes without the envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status := "fail"
		if fe.Code >= fiber.StatusInternalServerError {
			status = "error"
		}
		return c.Status(fe.Code).JSON(Envelope{Status: status, Message: fe.Message})
	}

	appErr, isApp := apperror.From(err)
	if !isApp || appErr.Kind == apperror.KindInternal {
		log.Error().
			Err(err).
			Str("request_id", middleware.RequestID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(Envelope{
			Status:  "error",
			Message: "internal server error",
		})
	}

	return c.Status(appErr.Status()).JSON(Envelope{
		Status:  "fail",
		Message: appErr.Message,
		Code:    appErr.Code,
		Data:    appErr.Data,
	})
}

func bindJSON(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperror.Validation("invalid request body")
	}
	return nil
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperror.Validationf("invalid %s", name)
	}
	return id, nil
}

func queryID(c *fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperror.Validationf("invalid %s", name)
	}
	return &id, nil
}

func queryBool(c *fiber.Ctx, name string) *bool {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v := raw == "true" || raw == "1"
	return &v
}

func page(c *fiber.Ctx) repository.Page {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	if offset < 0 {
		offset = 0
	}
	return repository.Page{Limit: limit, Offset: offset}
}

func caller(c *fiber.Ctx) service.Caller {
	return middleware.CallerFrom(c)
}
