package middleware

import (
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	HeaderRequestID = fiber.HeaderXRequestID
	localRequestID  = "request_id"
)

// RequestIDs tags every request with an id, reusing the client's header when present
func RequestIDs() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     HeaderRequestID,
		Generator:  uuid.NewString,
		ContextKey: localRequestID,
	})
}

// RequestID returns the id assigned by RequestIDs
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(localRequestID).(string)
	return id
}

// Logger logs each request with method, path, status, latency, request_id and user_id.
// Errors are rendered first so the logged status is the one the client sees.
func Logger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		evt := log.Info()
		if status >= fiber.StatusInternalServerError {
			evt = log.Error()
		} else if status >= fiber.StatusBadRequest {
			evt = log.Warn()
		}
		if caller := CallerFrom(c); caller.UserID != uuid.Nil {
			evt = evt.Str("user_id", caller.UserID.String())
		}
		evt.
			Str("request_id", RequestID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.IP()).
			Msg("request")
		return nil
	}
}

// Recovery turns panics into errors for the error handler and logs the stack
func Recovery() fiber.Handler {
	return recover.New(recover.Config{
		EnableStackTrace:  true,
		StackTraceHandler: logPanic,
	})
}

func logPanic(c *fiber.Ctx, e interface{}) {
	log.Error().
		Str("request_id", RequestID(c)).
		Interface("panic", e).
		Bytes("stack", debug.Stack()).
		Msg("panic recovered")
}
