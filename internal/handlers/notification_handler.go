package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/coursehub/internal/middleware"
)

// List the caller's notifications
func (h *Handler) ListNotifications(c *fiber.Ctx) error {
	page := pageOf(c)
	list, err := h.svc.Notifications.List(c.UserContext(), middleware.CurrentUser(c).ID, c.QueryBool("unread"), page)
	if err != nil {
		return err
	}
	page = page.Normalize()
	return ok(c, fiber.Map{"items": list.Items, "total": list.Total, "unread": list.Unread, "page": page.Page, "limit": page.Limit})
}

// MarkNotificationRead marks one notification as read
func (h *Handler) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Notifications.MarkRead(c.UserContext(), middleware.CurrentUser(c).ID, id); err != nil {
		return err
	}
	return ok(c, nil)
}

// MarkAllNotificationsRead marks every notification as read
func (h *Handler) MarkAllNotificationsRead(c *fiber.Ctx) error {
	n, err := h.svc.Notifications.MarkAllRead(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"updated": n})
}
