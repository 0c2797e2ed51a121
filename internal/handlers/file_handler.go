package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/coursehub/internal/middleware"
)

const maxPresignExpiry = 7 * 24 * time.Hour

// UploadMedia stores an image or video for use in course content.
func (h *Handler) UploadMedia(c *fiber.Ctx) error {
	up, body, err := formFile(c, "file")
	if err != nil {
		return err
	}
	defer body.Close()

	m, err := h.svc.Media.Upload(c.UserContext(), middleware.CurrentUser(c).ID, up)
	if err != nil {
		return err
	}
	return created(c, fiber.Map{"media": m, "url": m.URL})
}

// List uploaded media
func (h *Handler) ListMedia(c *fiber.Ctx) error {
	page := pageOf(c)
	items, total, err := h.svc.Media.List(c.UserContext(), page)
	if err != nil {
		return err
	}
	return paged(c, items, total, page)
}

// Force delete a media object (Admin Only)
func (h *Handler) DeleteMedia(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Media.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return ok(c, fiber.Map{"message": "media deleted"})
}

// PresignedMediaURL returns a temporary download link. expires is in minutes.
func (h *Handler) PresignedMediaURL(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	expiry := time.Duration(c.QueryInt("expires", 60)) * time.Minute
	if expiry <= 0 || expiry > maxPresignExpiry {
		expiry = maxPresignExpiry
	}
	url, err := h.svc.Media.PresignedURL(c.UserContext(), id, expiry)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"url": url, "expires_in": int64(expiry.Seconds())})
}
