package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/middleware"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/roles"
	"github.com/arzan03/coursehub/internal/services"
)

// List users, filtered by role or search text
func (h *Handler) ListUsers(c *fiber.Ctx) error {
	f := db.UserFilter{Query: strings.TrimSpace(c.Query("q")), Page: pageOf(c)}
	if r := c.Query("role"); r != "" {
		f.Role = roles.Parse(r)
		if !f.Role.Valid() {
			return apperr.NewValidationError("role", "unknown role")
		}
	}
	users, total, err := h.svc.Users.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return paged(c, users, total, f.Page)
}

// Get user details by ID
func (h *Handler) GetUser(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	user, err := h.svc.Users.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"user": user, "permissions": user.EffectivePermissions().List()})
}

// CreateUser adds an account with an explicit role
func (h *Handler) CreateUser(c *fiber.Ctx) error {
	var in services.CreateUserInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, err := h.svc.Users.Create(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		return err
	}
	return created(c, fiber.Map{"user": user})
}

// UpdateUser edits names or the disabled flag of an account
func (h *Handler) UpdateUser(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in services.UpdateUserInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, err := h.svc.Users.Update(c.UserContext(), middleware.CurrentUser(c), id, in)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"user": user})
}

// ChangeUserRole moves an account to another role
func (h *Handler) ChangeUserRole(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in struct {
		Role string `json:"role"`
	}
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, err := h.svc.Users.ChangeRole(c.UserContext(), middleware.CurrentUser(c), id, in.Role)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"user": user})
}

// DeleteUser removes an account (Admin Only)
func (h *Handler) DeleteUser(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Users.Delete(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return err
	}
	return ok(c, fiber.Map{"message": "user deleted"})
}

// Stats returns the dashboard counters
func (h *Handler) Stats(c *fiber.Ctx) error {
	stats, err := h.svc.Dashboard.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"stats": stats})
}

// List audit entries, newest first
func (h *Handler) ListAuditLogs(c *fiber.Ctx) error {
	actor, err := optionalID(c, "actor")
	if err != nil {
		return err
	}
	f := db.AuditFilter{ActorID: actor, Resource: c.Query("resource"), Page: pageOf(c)}
	logs, total, err := h.svc.Audit.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return paged(c, logs, total, f.Page)
}

// List all orders, filtered by buyer or status
func (h *Handler) ListOrders(c *fiber.Ctx) error {
	userID, err := optionalID(c, "user")
	if err != nil {
		return err
	}
	f := db.OrderFilter{UserID: userID, Status: models.OrderStatus(c.Query("status")), Page: pageOf(c)}
	orders, total, err := h.svc.Checkout.ListOrders(c.UserContext(), f)
	if err != nil {
		return err
	}
	return paged(c, orders, total, f.Page)
}

// Broadcast sends a notification to an audience
func (h *Handler) Broadcast(c *fiber.Ctx) error {
	var in services.BroadcastInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	n, err := h.svc.Notifications.Broadcast(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		return err
	}
	return created(c, fiber.Map{"recipients": n})
}
