package middleware

import (
	"strings"

	"go-rental-store/internal/apperror"
	"go-rental-store/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	localCaller  = "caller"
	localPurpose = "token_purpose"
)

var (
	errMissingToken = apperror.Unauthenticated("missing authorization token")
	errTokenFormat  = apperror.Unauthenticated("invalid authorization format, use: Bearer <token>")
	errRoleDenied   = apperror.Forbidden("your role is not allowed to perform this action")
)

// Authenticator resolves a bearer token into the calling user
type Authenticator interface {
	Authenticate(tokenString string, allowPasswordChange bool) (service.Caller, string, error)
}

// RequireAuth validates the bearer token and stores the caller in locals.
// Password-change tokens are rejected.
func RequireAuth(auth Authenticator) fiber.Handler {
	return authenticate(auth, false)
}

// RequirePasswordChange behaves like RequireAuth but also accepts the
// short-lived token issued on first login.
func RequirePasswordChange(auth Authenticator) fiber.Handler {
	return authenticate(auth, true)
}

func authenticate(auth Authenticator, allowPasswordChange bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 1. Extract token from "Bearer <token>"
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return errMissingToken
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			return errTokenFormat
		}

		// 2. Validate token against the stored user
		caller, purpose, err := auth.Authenticate(parts[1], allowPasswordChange)
		if err != nil {
			return err
		}

		c.Locals(localCaller, caller)
		c.Locals(localPurpose, purpose)
		return c.Next()
	}
}

// RequireRole lets the request through only for the listed roles
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		if _, ok := allowed[CallerFrom(c).Role]; !ok {
			return errRoleDenied
		}
		return c.Next()
	}
}

// CallerFrom returns the caller set by RequireAuth, or the zero Caller
func CallerFrom(c *fiber.Ctx) service.Caller {
	caller, _ := c.Locals(localCaller).(service.Caller)
	return caller
}

// TokenPurpose returns the purpose claim of the token used on this request
func TokenPurpose(c *fiber.Ctx) string {
	purpose, _ := c.Locals(localPurpose).(string)
	return purpose
}
