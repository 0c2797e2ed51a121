package services

import (
	"context"
	"fmt"

	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/logger"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/roles"
)

// Audit actions.
const (
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
	ActionRoleChange   = "role_change"
	ActionStatusChange = "status_change"
	ActionPayment      = "payment"
	ActionNotify       = "notify"
)

// Entry describes one audited action.
type Entry struct {
	Actor      *models.User
	Action     string
	Resource   string
	ResourceID string
	Details    map[string]interface{}
	// Sensitive entries are also pushed to every super admin.
	Sensitive bool
}

// Auditor writes the audit trail. Recording never fails the calling operation.
type Auditor struct {
	logs   db.AuditLogs
	notify *Dispatcher
	log    logger.Logger
	clock  clock
}

// NewAuditor creates the audit recorder.
func NewAuditor(logs db.AuditLogs, notify *Dispatcher, log logger.Logger) *Auditor {
	return &Auditor{logs: logs, notify: notify, log: log}
}

func (a *Auditor) Record(ctx context.Context, e Entry) {
	entry := &models.AuditLog{
		Action:     e.Action,
		Resource:   e.Resource,
		ResourceID: e.ResourceID,
		Details:    e.Details,
		IP:         clientIP(ctx),
		CreatedAt:  a.clock.now(),
	}
	if e.Actor != nil {
		entry.ActorID = e.Actor.ID
		entry.ActorRole = e.Actor.Role
	}
	if err := a.logs.Insert(ctx, entry); err != nil {
		a.log.Error("writing audit log", err, entry)
	}
	if !e.Sensitive || a.notify == nil {
		return
	}

	actor := "system"
	if e.Actor != nil {
		actor = e.Actor.Email
	}
	_, err := a.notify.Send(ctx, Message{
		Type:     "audit",
		Title:    fmt.Sprintf("%s %s", e.Resource, e.Action),
		Message:  fmt.Sprintf("%s performed %s on %s %s", actor, e.Action, e.Resource, e.ResourceID),
		Severity: models.SeverityWarning,
		SenderID: entry.ActorID,
	}, ToRoles(roles.SuperAdmin))
	if err != nil {
		a.log.Error("notifying super admins", err, entry)
	}
}

// List pages through audit entries, newest first.
func (a *Auditor) List(ctx context.Context, f db.AuditFilter) ([]models.AuditLog, int64, error) {
	return a.logs.List(ctx, f)
}
