package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/services"
)

const (
	localUser    = "user"
	localSession = "session"
)

// Authenticator resolves a session token into a fresh user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string, kind models.SessionKind) (*models.User, *models.Session, error)
}

// tokenFrom reads the session token from the cookie, falling back to a Bearer header.
func tokenFrom(c *fiber.Ctx, cookie string) string {
	if t := c.Cookies(cookie); t != "" {
		return t
	}
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireSession rejects requests without a live session of the given kind and
// stores the caller in the request locals.
func RequireSession(auth Authenticator, kind models.SessionKind, cookie string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := tokenFrom(c, cookie)
		if token == "" {
			return errors.Wrap(apperr.ErrUnauthorized, "missing token")
		}
		user, session, err := auth.Authenticate(c.UserContext(), token, kind)
		if err != nil {
			return err
		}
		c.Locals(localUser, user)
		c.Locals(localSession, session)
		c.SetUserContext(services.WithClientIP(c.UserContext(), c.IP()))
		return c.Next()
	}
}

// OptionalSession identifies the caller when a valid token is present and
// lets anonymous requests through.
func OptionalSession(auth Authenticator, kind models.SessionKind, cookie string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := tokenFrom(c, cookie); token != "" {
			if user, session, err := auth.Authenticate(c.UserContext(), token, kind); err == nil {
				c.Locals(localUser, user)
				c.Locals(localSession, session)
			}
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated caller, or nil on public routes.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(localUser).(*models.User)
	return u
}

// CurrentSession returns the session set by RequireSession or OptionalSession.
func CurrentSession(c *fiber.Ctx) *models.Session {
	s, _ := c.Locals(localSession).(*models.Session)
	return s
}
