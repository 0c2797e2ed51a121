package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/coursehub/internal/middleware"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/services"
)

// Register handles user registration
func (h *Handler) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, err := h.svc.Auth.Register(c.UserContext(), in)
	if err != nil {
		return err
	}
	return created(c, fiber.Map{"user": user})
}

func (h *Handler) login(c *fiber.Ctx, kind models.SessionKind, cookie string) error {
	var in services.LoginInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	res, err := h.svc.Auth.Login(c.UserContext(), in, kind, clientInfo(c))
	if err != nil {
		return err
	}
	h.setSessionCookie(c, cookie, res.Token, res.ExpiresAt)
	return ok(c, fiber.Map{"token": res.Token, "expires_at": res.ExpiresAt, "user": res.User})
}

// Login opens a learner session and sets its cookie
func (h *Handler) Login(c *fiber.Ctx) error {
	return h.login(c, models.SessionUser, h.cookies.User)
}

// AdminLogin opens an admin session for staff accounts
func (h *Handler) AdminLogin(c *fiber.Ctx) error {
	return h.login(c, models.SessionAdmin, h.cookies.Admin)
}

// IDTokenLogin exchanges an identity provider token for a user session.
func (h *Handler) IDTokenLogin(c *fiber.Ctx) error {
	var in struct {
		IDToken string `json:"id_token"`
	}
	if err := parseBody(c, &in); err != nil {
		return err
	}
	res, err := h.svc.Auth.LoginWithIDToken(c.UserContext(), in.IDToken, clientInfo(c))
	if err != nil {
		return err
	}
	h.setSessionCookie(c, h.cookies.User, res.Token, res.ExpiresAt)
	return ok(c, fiber.Map{"token": res.Token, "expires_at": res.ExpiresAt, "user": res.User})
}

func (h *Handler) logout(c *fiber.Ctx, cookie string) error {
	if s := middleware.CurrentSession(c); s != nil {
		if err := h.svc.Auth.Logout(c.UserContext(), s.ID); err != nil {
			return err
		}
	}
	h.clearSessionCookie(c, cookie)
	return ok(c, fiber.Map{"message": "logged out"})
}

// Logout ends the learner session
func (h *Handler) Logout(c *fiber.Ctx) error {
	return h.logout(c, h.cookies.User)
}

// AdminLogout ends the admin session
func (h *Handler) AdminLogout(c *fiber.Ctx) error {
	return h.logout(c, h.cookies.Admin)
}

// Me returns the caller with their effective permissions.
func (h *Handler) Me(c *fiber.Ctx) error {
	u := middleware.CurrentUser(c)
	return ok(c, fiber.Map{"user": u, "permissions": u.EffectivePermissions().List()})
}
