package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/coursehub/internal/middleware"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/services"
)

// GetProfile returns the signed-in user
func (h *Handler) GetProfile(c *fiber.Ctx) error {
	return ok(c, fiber.Map{"user": middleware.CurrentUser(c)})
}

// UpdateProfile edits the caller's names
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	var in services.ProfileInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, err := h.svc.Users.UpdateProfile(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"user": user})
}

// ChangePassword replaces the caller's password
func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	var in services.ChangePasswordInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	if err := h.svc.Auth.ChangePassword(c.UserContext(), middleware.CurrentUser(c), in); err != nil {
		return err
	}
	return ok(c, fiber.Map{"message": "password updated"})
}

// UploadAvatar stores an image and points the caller's profile at it.
func (h *Handler) UploadAvatar(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	up, body, err := formFile(c, "file")
	if err != nil {
		return err
	}
	defer body.Close()

	m, err := h.svc.Media.Upload(c.UserContext(), user.ID, up, models.MediaImage)
	if err != nil {
		return err
	}
	user, err = h.svc.Users.SetAvatar(c.UserContext(), user, m.URL)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"user": user, "media": m})
}
