package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/logger"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/payment"
)

// PaymentGateway initializes and verifies hosted card payments.
type PaymentGateway interface {
	Initialize(ctx context.Context, req payment.InitRequest) (*payment.Checkout, error)
	Verify(ctx context.Context, reference string) (*payment.Verification, error)
	VerifySignature(body []byte, signature string) bool
}

// CheckoutResult is a new order and, for paid orders, where to pay for it.
type CheckoutResult struct {
	Order            *models.Order `json:"order"`
	Reference        string        `json:"reference"`
	AuthorizationURL string        `json:"authorization_url,omitempty"`
}

// CheckoutService turns carts into orders and settles them with the gateway.
type CheckoutService struct {
	orders      db.Orders
	carts       db.Carts
	users       db.Users
	gateway     PaymentGateway
	enroll      *EnrollmentService
	notify      *Dispatcher
	audit       *Auditor
	log         logger.Logger
	currency    string
	callbackURL string
	clock       clock
}

// CheckoutOptions configures the payment gateway. A nil Gateway only allows free orders.
type CheckoutOptions struct {
	Gateway     PaymentGateway
	Currency    string
	CallbackURL string
}

// NewCheckoutService wires checkout to the store and the enrollment service.
func NewCheckoutService(store *db.Store, enroll *EnrollmentService, notify *Dispatcher, audit *Auditor, log logger.Logger, opts CheckoutOptions) *CheckoutService {
	return &CheckoutService{
		orders:      store.Orders,
		carts:       store.Carts,
		users:       store.Users,
		gateway:     opts.Gateway,
		enroll:      enroll,
		notify:      notify,
		audit:       audit,
		log:         log,
		currency:    strings.ToUpper(opts.Currency),
		callbackURL: opts.CallbackURL,
	}
}

// Checkout turns the user's cart into a pending order. Free orders are
// fulfilled at once; others get a hosted payment page.
func (s *CheckoutService) Checkout(ctx context.Context, user *models.User) (*CheckoutResult, error) {
	cart, err := s.carts.Get(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, errors.Wrap(apperr.ErrInvalidInput, "cart is empty")
	}

	now := s.clock.now()
	order := &models.Order{
		UserID:    user.ID,
		Reference: uuid.NewString(),
		Items:     append([]models.CartItem{}, cart.Items...),
		Total:     cart.Total(),
		Currency:  s.currency,
		Status:    models.OrderPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if order.Total == 0 {
		if err := s.orders.Create(ctx, order); err != nil {
			return nil, err
		}
		paid, err := s.fulfil(ctx, order, "free")
		if err != nil {
			return nil, err
		}
		return &CheckoutResult{Order: paid, Reference: paid.Reference}, nil
	}

	if s.gateway == nil {
		return nil, errors.Wrap(apperr.ErrUnavailable, "payments not configured")
	}
	checkout, err := s.gateway.Initialize(ctx, payment.InitRequest{
		Email:       user.Email,
		Amount:      order.Total,
		Currency:    order.Currency,
		Reference:   order.Reference,
		CallbackURL: s.callbackURL,
		Metadata:    map[string]interface{}{"user_id": user.ID.Hex(), "items": len(order.Items)},
	})
	if err != nil {
		return nil, errors.Wrapf(apperr.ErrUnavailable, "initializing payment: %v", err)
	}
	order.AuthorizationURL = checkout.AuthorizationURL
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	return &CheckoutResult{Order: order, Reference: order.Reference, AuthorizationURL: order.AuthorizationURL}, nil
}

// Verify confirms the buyer's payment with the gateway and fulfils the order.
// Orders belonging to someone else are reported as not found. It is safe to
// call repeatedly and concurrently for the same reference.
func (s *CheckoutService) Verify(ctx context.Context, buyer *models.User, reference string) (*models.Order, error) {
	order, err := s.order(ctx, reference)
	if err != nil {
		return nil, err
	}
	if order.UserID != buyer.ID {
		return nil, errors.Wrap(apperr.ErrNotFound, "order")
	}
	return s.confirm(ctx, order)
}

func (s *CheckoutService) order(ctx context.Context, reference string) (*models.Order, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, apperr.NewValidationError("reference", "reference is required")
	}
	return s.orders.GetByReference(ctx, reference)
}

func (s *CheckoutService) confirm(ctx context.Context, order *models.Order) (*models.Order, error) {
	switch order.Status {
	case models.OrderPaid:
		return order, nil
	case models.OrderFailed:
		return nil, errors.Wrap(apperr.ErrPaymentFailed, order.GatewayResponse)
	}

	if s.gateway == nil {
		return nil, errors.Wrap(apperr.ErrUnavailable, "payments not configured")
	}
	v, err := s.gateway.Verify(ctx, order.Reference)
	if err != nil {
		return nil, errors.Wrapf(apperr.ErrUnavailable, "verifying payment: %v", err)
	}

	if reason := mismatch(order, v); reason != "" {
		if err := s.orders.MarkFailed(ctx, order.Reference, reason); err != nil {
			return nil, err
		}
		s.audit.Record(ctx, Entry{
			Action:     ActionPayment,
			Resource:   "order",
			ResourceID: order.Reference,
			Details:    map[string]interface{}{"status": string(models.OrderFailed), "reason": reason, "user_id": order.UserID.Hex()},
		})
		return nil, errors.Wrap(apperr.ErrPaymentFailed, reason)
	}
	return s.fulfil(ctx, order, v.GatewayResponse)
}

func mismatch(o *models.Order, v *payment.Verification) string {
	switch {
	case !v.Succeeded():
		if v.GatewayResponse != "" {
			return v.GatewayResponse
		}
		return "payment " + v.Status
	case v.Amount != o.Total:
		return fmt.Sprintf("amount mismatch: paid %d, expected %d", v.Amount, o.Total)
	case !strings.EqualFold(v.Currency, o.Currency):
		return fmt.Sprintf("currency mismatch: paid %s, expected %s", v.Currency, o.Currency)
	}
	return ""
}

// fulfil grants access and then marks the order paid, so a paid order always
// has its enrollments. A failed grant leaves the order pending for the next
// verify to retry. Only the caller that wins the pending to paid transition
// sends the receipt and clears the cart.
func (s *CheckoutService) fulfil(ctx context.Context, order *models.Order, gatewayResponse string) (*models.Order, error) {
	for _, it := range order.Items {
		if _, err := s.enroll.enroll(ctx, order.UserID, it.CourseID, order.ID); err != nil && !isConflict(err) {
			return nil, errors.Wrapf(err, "enrolling in %s", it.CourseID.Hex())
		}
	}

	won, err := s.orders.MarkPaid(ctx, order.Reference, s.clock.now(), gatewayResponse)
	if err != nil {
		return nil, err
	}
	if !won {
		return s.orders.GetByReference(ctx, order.Reference)
	}

	if cart, err := s.carts.Get(ctx, order.UserID); err != nil {
		s.log.Error("loading cart after payment", err, order.Reference)
	} else {
		for _, it := range order.Items {
			cart.Remove(it.CourseID)
		}
		cart.UpdatedAt = s.clock.now()
		if err := s.carts.Save(ctx, cart); err != nil {
			s.log.Error("clearing paid cart items", err, order.Reference)
		}
	}

	if _, err := s.notify.Send(ctx, Message{
		Type:     "payment",
		Title:    "Payment received",
		Message:  fmt.Sprintf("Your order %s is confirmed. You now have access to %d course(s).", order.Reference, len(order.Items)),
		Severity: models.SeverityInfo,
		Link:     "/enrollments",
	}, ToUsers(order.UserID)); err != nil {
		s.log.Error("notifying buyer", err, order.Reference)
	}

	buyer, err := s.users.GetByID(ctx, order.UserID)
	if err != nil {
		s.log.Warn("loading buyer for audit", err, order.Reference)
	}
	s.audit.Record(ctx, Entry{
		Actor:      buyer,
		Action:     ActionPayment,
		Resource:   "order",
		ResourceID: order.Reference,
		Details:    map[string]interface{}{"status": string(models.OrderPaid), "total": order.Total, "currency": order.Currency},
	})
	return s.orders.GetByReference(ctx, order.Reference)
}

// HandleWebhook authenticates a gateway event and fulfils successful charges.
func (s *CheckoutService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if s.gateway == nil {
		return errors.Wrap(apperr.ErrUnavailable, "payments not configured")
	}
	if !s.gateway.VerifySignature(body, signature) {
		return errors.Wrap(apperr.ErrUnauthorized, "invalid webhook signature")
	}
	ev, err := payment.ParseEvent(body)
	if err != nil {
		return errors.Wrap(apperr.ErrInvalidInput, err.Error())
	}
	if ev.Event != "charge.success" {
		return nil
	}
	order, err := s.order(ctx, ev.Data.Reference)
	if err != nil {
		return err
	}
	_, err = s.confirm(ctx, order)
	return err
}

// ListOrders pages through orders for the admin order list and the buyer's history.
func (s *CheckoutService) ListOrders(ctx context.Context, f db.OrderFilter) ([]models.Order, int64, error) {
	return s.orders.List(ctx, f)
}
