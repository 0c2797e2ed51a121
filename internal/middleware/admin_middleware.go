package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/pkg/errors"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/roles"
)

// RequirePermission lets the request through only when the caller's
// effective permissions include p. It must run after RequireSession.
func RequirePermission(p roles.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := CurrentUser(c)
		if u == nil {
			return errors.Wrap(apperr.ErrUnauthorized, "missing session")
		}
		if !u.Can(p) {
			return errors.Wrapf(apperr.ErrForbidden, "requires %s", p)
		}
		return c.Next()
	}
}

// RequireRole lets through callers whose role is at least r.
func RequireRole(r roles.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := CurrentUser(c)
		if u == nil {
			return errors.Wrap(apperr.ErrUnauthorized, "missing session")
		}
		if !u.Role.AtLeast(r) {
			return errors.Wrapf(apperr.ErrForbidden, "requires role %s", r)
		}
		return c.Next()
	}
}

// RateLimit allows max requests per window for each authenticated caller,
// falling back to the client IP.
func RateLimit(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if u := CurrentUser(c); u != nil {
				return "user:" + u.ID.Hex()
			}
			return "ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return errors.Wrapf(apperr.ErrRateLimited, "limit of %d per %s reached", max, window)
		},
	})
}
