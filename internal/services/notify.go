package services

import (
	"context"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/httpx"
	"github.com/arzan03/coursehub/internal/logger"
	"github.com/arzan03/coursehub/internal/mailer"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/roles"
	"github.com/arzan03/coursehub/internal/utils"
	"github.com/arzan03/coursehub/internal/validate"
)

const deliveryTimeout = 30 * time.Second

// Message is the content of a notification before it is fanned out.
type Message struct {
	Type     string
	Title    string
	Message  string
	Severity models.Severity
	Link     string
	SenderID primitive.ObjectID
}

// Audience selects recipients. Everyone wins over Roles, Roles over UserIDs.
type Audience struct {
	UserIDs  []primitive.ObjectID
	Roles    []roles.Role
	Everyone bool
}

func ToUsers(ids ...primitive.ObjectID) Audience { return Audience{UserIDs: ids} }

func ToRoles(rs ...roles.Role) Audience { return Audience{Roles: rs} }

func ToEveryone() Audience { return Audience{Everyone: true} }

// DispatcherOptions configures delivery beyond the inbox.
type DispatcherOptions struct {
	WebhookURL string
	Workers    int
	HTTPClient *http.Client
	Mailer     mailer.Mailer
	Logger     logger.Logger
}

// Dispatcher stores one notification per recipient and forwards each batch
// to the webhook and, for critical ones, by email on a bounded worker pool.
type Dispatcher struct {
	notifications db.Notifications
	users         db.Users
	pool          *utils.WorkerPool
	client        *http.Client
	webhookURL    string
	mailer        mailer.Mailer
	retry         httpx.RetryConfig
	log           logger.Logger
	clock         clock
}

// NewDispatcher starts the delivery worker pool.
func NewDispatcher(notifications db.Notifications, users db.Users, opts DispatcherOptions) *Dispatcher {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{
		notifications: notifications,
		users:         users,
		pool:          utils.NewWorkerPool(opts.Workers),
		client:        client,
		webhookURL:    opts.WebhookURL,
		mailer:        opts.Mailer,
		retry:         httpx.DefaultRetryConfig(),
		log:           log,
	}
}

// Send stores the message for every recipient in aud and schedules delivery.
// Only storage errors are returned.
func (d *Dispatcher) Send(ctx context.Context, msg Message, aud Audience) ([]*models.Notification, error) {
	if strings.TrimSpace(msg.Title) == "" && strings.TrimSpace(msg.Message) == "" {
		return nil, apperr.NewValidationError("message", "message or title is required")
	}
	if msg.Severity == "" {
		msg.Severity = models.SeverityInfo
	}
	if !msg.Severity.Valid() {
		return nil, apperr.NewValidationError("severity", "severity must be one of info, warning, critical")
	}
	if msg.Type == "" {
		msg.Type = "general"
	}

	recipients, err := d.resolve(ctx, aud)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, nil
	}

	now := d.clock.now()
	batch := make([]*models.Notification, 0, len(recipients))
	for _, u := range recipients {
		batch = append(batch, &models.Notification{
			Type:        msg.Type,
			RecipientID: u.ID,
			Title:       msg.Title,
			Message:     msg.Message,
			Severity:    msg.Severity,
			Link:        msg.Link,
			SenderID:    msg.SenderID,
			CreatedAt:   now,
		})
	}
	if err := d.notifications.InsertMany(ctx, batch); err != nil {
		return nil, errors.Wrap(err, "storing notifications")
	}

	var emails []mailer.Message
	if msg.Severity == models.SeverityCritical && d.mailer != nil {
		for _, u := range recipients {
			if u.Email == "" {
				continue
			}
			emails = append(emails, mailer.Message{
				To:      []mail.Address{{Name: u.PublicName(), Address: u.Email}},
				Subject: msg.Title,
				Text:    msg.Message,
			})
		}
	}
	if d.webhookURL != "" || len(emails) > 0 {
		if !d.pool.Submit(func() { d.deliver(batch, emails) }) {
			d.log.Warn("dispatcher closed, dropping delivery", len(batch))
		}
	}
	return batch, nil
}

func (d *Dispatcher) resolve(ctx context.Context, aud Audience) ([]models.User, error) {
	switch {
	case aud.Everyone:
		users, err := d.users.ListByRoles(ctx)
		return users, errors.Wrap(err, "listing recipients")
	case len(aud.Roles) > 0:
		users, err := d.users.ListByRoles(ctx, aud.Roles...)
		return users, errors.Wrap(err, "listing recipients")
	}

	seen := make(map[primitive.ObjectID]bool, len(aud.UserIDs))
	users := make([]models.User, 0, len(aud.UserIDs))
	for _, id := range aud.UserIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		u, err := d.users.GetByID(ctx, id)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "loading recipient")
		}
		users = append(users, *u)
	}
	return users, nil
}

func (d *Dispatcher) deliver(batch []*models.Notification, emails []mailer.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if d.webhookURL != "" {
		payload := map[string]interface{}{"notifications": batch}
		_, _, err := httpx.DoWithRetry(ctx, d.client, httpx.JSONRequest(http.MethodPost, d.webhookURL, payload, nil), d.retry)
		if err != nil {
			d.log.Error("forwarding notifications to webhook", err, len(batch))
		}
	}
	for _, m := range emails {
		if err := d.mailer.Send(ctx, m); err != nil {
			d.log.Error("emailing notification", err, m.Subject)
		}
	}
}

// Wait blocks until every scheduled delivery has finished.
func (d *Dispatcher) Wait() {
	d.pool.Wait()
}

// Close stops accepting deliveries and drains the queue.
func (d *Dispatcher) Close() {
	d.pool.Close()
}

// NotificationService serves a user's own notifications and admin broadcasts.
type NotificationService struct {
	notifications db.Notifications
	dispatcher    *Dispatcher
	audit         *Auditor
	clock         clock
}

// NewNotificationService wires the inbox to the dispatcher.
func NewNotificationService(notifications db.Notifications, dispatcher *Dispatcher, audit *Auditor) *NotificationService {
	return &NotificationService{notifications: notifications, dispatcher: dispatcher, audit: audit}
}

// NotificationList is one page of the inbox with the unread count.
type NotificationList struct {
	Items  []models.Notification `json:"items"`
	Total  int64                 `json:"total"`
	Unread int64                 `json:"unread"`
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, page db.Page) (*NotificationList, error) {
	items, total, err := s.notifications.List(ctx, db.NotificationFilter{RecipientID: userID, UnreadOnly: unreadOnly, Page: page})
	if err != nil {
		return nil, err
	}
	unread, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &NotificationList{Items: items, Total: total, Unread: unread}, nil
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id primitive.ObjectID) error {
	return s.notifications.MarkRead(ctx, id, userID, s.clock.now())
}

// MarkAllRead marks every unread notification of the user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.notifications.MarkAllRead(ctx, userID, s.clock.now())
}

// BroadcastInput is an admin-composed notification. Exactly one of UserIDs,
// Roles or All selects the audience.
type BroadcastInput struct {
	Title    string   `json:"title" validate:"required,max=200"`
	Message  string   `json:"message" validate:"required,max=5000"`
	Severity string   `json:"severity" validate:"omitempty,oneof=info warning critical"`
	Link     string   `json:"link" validate:"omitempty,max=2000"`
	UserIDs  []string `json:"user_ids" validate:"omitempty,dive,objectid"`
	Roles    []string `json:"roles" validate:"omitempty,dive,role"`
	All      bool     `json:"all"`
}

func (in BroadcastInput) audience() (Audience, error) {
	switch {
	case in.All:
		return ToEveryone(), nil
	case len(in.Roles) > 0:
		rs := make([]roles.Role, 0, len(in.Roles))
		for _, r := range in.Roles {
			rs = append(rs, roles.Parse(r))
		}
		return ToRoles(rs...), nil
	case len(in.UserIDs) > 0:
		ids, err := parseIDs("user_ids", in.UserIDs)
		if err != nil {
			return Audience{}, err
		}
		return ToUsers(ids...), nil
	}
	return Audience{}, apperr.NewValidationError("audience", "one of user_ids, roles or all is required")
}

// Broadcast sends an admin notification and returns the number of recipients.
func (s *NotificationService) Broadcast(ctx context.Context, sender *models.User, in BroadcastInput) (int, error) {
	if err := validate.Struct(in); err != nil {
		return 0, err
	}
	aud, err := in.audience()
	if err != nil {
		return 0, err
	}
	batch, err := s.dispatcher.Send(ctx, Message{
		Type:     "admin",
		Title:    in.Title,
		Message:  in.Message,
		Severity: models.Severity(in.Severity),
		Link:     in.Link,
		SenderID: sender.ID,
	}, aud)
	if err != nil {
		return 0, err
	}
	s.audit.Record(ctx, Entry{
		Actor:    sender,
		Action:   ActionNotify,
		Resource: "notification",
		Details:  map[string]interface{}{"title": in.Title, "recipients": len(batch), "severity": in.Severity},
	})
	return len(batch), nil
}
