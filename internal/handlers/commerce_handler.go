package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/middleware"
	"github.com/arzan03/coursehub/internal/services"
)

// GetCart returns the caller's cart with its total
func (h *Handler) GetCart(c *fiber.Ctx) error {
	cart, err := h.svc.Cart.Get(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"cart": cart})
}

// AddToCart puts a course in the cart
func (h *Handler) AddToCart(c *fiber.Ctx) error {
	var in services.CartInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	cart, err := h.svc.Cart.Add(c.UserContext(), middleware.CurrentUser(c).ID, in)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"cart": cart})
}

// RemoveFromCart drops a course from the cart
func (h *Handler) RemoveFromCart(c *fiber.Ctx) error {
	courseID, err := idParam(c, "courseId")
	if err != nil {
		return err
	}
	cart, err := h.svc.Cart.Remove(c.UserContext(), middleware.CurrentUser(c).ID, courseID)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"cart": cart})
}

// ClearCart empties the cart
func (h *Handler) ClearCart(c *fiber.Ctx) error {
	if err := h.svc.Cart.Clear(c.UserContext(), middleware.CurrentUser(c).ID); err != nil {
		return err
	}
	return ok(c, fiber.Map{"message": "cart cleared"})
}

// Checkout turns the cart into an order and returns the payment page
func (h *Handler) Checkout(c *fiber.Ctx) error {
	res, err := h.svc.Checkout.Checkout(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return created(c, fiber.Map{
		"order":             res.Order,
		"reference":         res.Reference,
		"authorization_url": res.AuthorizationURL,
	})
}

// VerifyPayment settles one of the caller's orders by reference
func (h *Handler) VerifyPayment(c *fiber.Ctx) error {
	order, err := h.svc.Checkout.Verify(c.UserContext(), middleware.CurrentUser(c), c.Query("reference"))
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"order": order})
}

// PaystackWebhook acknowledges every authentic event. Declined payments are
// acknowledged too since a redelivery cannot change the outcome; transient
// failures are returned so the gateway retries.
func (h *Handler) PaystackWebhook(c *fiber.Ctx) error {
	err := h.svc.Checkout.HandleWebhook(c.UserContext(), c.Body(), c.Get("x-paystack-signature"))
	if errors.Is(err, apperr.ErrPaymentFailed) {
		h.log.Warn("webhook for failed payment", err)
		err = nil
	}
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"received": true})
}

// List the caller's orders
func (h *Handler) MyOrders(c *fiber.Ctx) error {
	f := db.OrderFilter{UserID: middleware.CurrentUser(c).ID, Page: pageOf(c)}
	orders, total, err := h.svc.Checkout.ListOrders(c.UserContext(), f)
	if err != nil {
		return err
	}
	return paged(c, orders, total, f.Page)
}

// EnrollFree enrolls the caller in a free course
func (h *Handler) EnrollFree(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	e, err := h.svc.Enrollments.EnrollFree(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return err
	}
	return created(c, fiber.Map{"enrollment": e})
}

// List the caller's enrollments
func (h *Handler) ListEnrollments(c *fiber.Ctx) error {
	items, err := h.svc.Enrollments.List(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"items": items})
}

// CompleteLesson records lesson progress
func (h *Handler) CompleteLesson(c *fiber.Ctx) error {
	courseID, err := idParam(c, "courseId")
	if err != nil {
		return err
	}
	var in struct {
		Lesson string `json:"lesson"`
	}
	if err := parseBody(c, &in); err != nil {
		return err
	}
	e, err := h.svc.Enrollments.CompleteLesson(c.UserContext(), middleware.CurrentUser(c).ID, courseID, in.Lesson)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"enrollment": e})
}
