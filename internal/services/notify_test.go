package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/roles"
)

func TestDispatcherForwardsBatchToWebhook(t *testing.T) {
	var (
		mu       sync.Mutex
		received []models.Notification
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Notifications []models.Notification `json:"notifications"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		received = append(received, body.Notifications...)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	env := newTestEnv(t, func(o *Options) {
		o.NotifyWebhookURL = srv.URL
		o.HTTPClient = srv.Client()
	})
	a := env.user(t, "a@example.com", roles.User)
	b := env.user(t, "b@example.com", roles.User)

	batch, err := env.svc.Dispatcher.Send(context.Background(), Message{Title: "Hello"}, ToUsers(a.ID, b.ID, a.ID, primitive.NewObjectID()))
	require.NoError(t, err)
	require.Len(t, batch, 2, "duplicates and unknown users are skipped")
	assert.Equal(t, models.SeverityInfo, batch[0].Severity)
	assert.Equal(t, "general", batch[0].Type)

	env.svc.Dispatcher.Wait()
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	assert.Equal(t, "Hello", received[0].Title)
}

func TestDispatcherEmailsCriticalNotifications(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "admin@example.com", roles.Admin)
	env.user(t, "learner@example.com", roles.User)

	_, err := env.svc.Dispatcher.Send(context.Background(), Message{Title: "Outage", Message: "Payments are down", Severity: models.SeverityCritical}, ToRoles(roles.Admin))
	require.NoError(t, err)
	env.svc.Dispatcher.Wait()

	sent := env.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, admin.Email, sent[0].To[0].Address)
	assert.Equal(t, "Outage", sent[0].Subject)

	_, err = env.svc.Dispatcher.Send(context.Background(), Message{Title: "Routine"}, ToEveryone())
	require.NoError(t, err)
	env.svc.Dispatcher.Wait()
	assert.Len(t, env.mail.Sent(), 1, "only critical notifications are emailed")

	_, err = env.svc.Dispatcher.Send(context.Background(), Message{}, ToEveryone())
	assert.Equal(t, 400, apperr.Status(err))
	_, err = env.svc.Dispatcher.Send(context.Background(), Message{Title: "x", Severity: "loud"}, ToEveryone())
	assert.Equal(t, 400, apperr.Status(err))
}

func TestBroadcast(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "admin@example.com", roles.Admin)
	staff := env.user(t, "staff@example.com", roles.Staff)
	learner := env.user(t, "learner@example.com", roles.User)

	_, err := env.svc.Notifications.Broadcast(ctx, admin, BroadcastInput{Title: "Hi", Message: "There"})
	assert.Equal(t, 400, apperr.Status(err), "audience is required")

	_, err = env.svc.Notifications.Broadcast(ctx, admin, BroadcastInput{Title: "Hi", Message: "There", Roles: []string{"wizard"}})
	assert.Equal(t, 400, apperr.Status(err))

	n, err := env.svc.Notifications.Broadcast(ctx, admin, BroadcastInput{Title: "Staff", Message: "Meeting", Roles: []string{"staff"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = env.svc.Notifications.Broadcast(ctx, admin, BroadcastInput{Title: "All", Message: "Welcome", All: true})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	list, err := env.svc.Notifications.List(ctx, staff.ID, false, db.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Total)
	assert.Equal(t, int64(2), list.Unread)
	assert.Equal(t, admin.ID, list.Items[0].SenderID)

	logs, _, err := env.svc.Audit.List(ctx, db.AuditFilter{Resource: "notification"})
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	mine := env.notifications(t, learner.ID)
	require.Len(t, mine, 1)
	assert.Equal(t, 404, apperr.Status(env.svc.Notifications.MarkRead(ctx, staff.ID, mine[0].ID)),
		"users cannot read someone else's notification")
	require.NoError(t, env.svc.Notifications.MarkRead(ctx, learner.ID, mine[0].ID))

	marked, err := env.svc.Notifications.MarkAllRead(ctx, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	list, err = env.svc.Notifications.List(ctx, staff.ID, true, db.Page{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
	assert.Equal(t, int64(0), list.Unread)
}
