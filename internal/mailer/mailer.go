package mailer

import (
	"context"
	"net/mail"
	"strings"
	"sync"

	"github.com/arzan03/coursehub/internal/logger"
)

// Message is a single outgoing email.
type Message struct {
	To      []mail.Address
	Subject string
	Text    string
	HTML    string
}

func (m Message) HasRecipients() bool {
	return len(m.To) > 0
}

// Mailer sends email. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Console writes messages to the logger instead of sending them. It keeps a
// copy of everything sent so tests can inspect it.
type Console struct {
	from       mail.Address
	subjPrefix string
	log        logger.Logger

	mu   sync.Mutex
	sent []Message
}

var _ Mailer = (*Console)(nil)

// NewConsole returns a mailer that logs messages instead of sending them.
func NewConsole(appName string, from mail.Address, log logger.Logger) *Console {
	return &Console{from: from, subjPrefix: "[" + appName + "] ", log: log}
}

// Send records msg and logs its subject and recipients.
func (c *Console) Send(_ context.Context, msg Message) error {
	if !msg.HasRecipients() {
		return nil
	}
	to := make([]string, 0, len(msg.To))
	for _, a := range msg.To {
		to = append(to, a.String())
	}
	c.log.Info("email", map[string]interface{}{
		"from":    c.from.String(),
		"to":      strings.Join(to, ", "),
		"subject": c.subjPrefix + msg.Subject,
		"body":    msg.Text,
	})
	c.mu.Lock()
	c.sent = append(c.sent, msg)
	c.mu.Unlock()
	return nil
}

// Sent returns a copy of the messages sent so far.
func (c *Console) Sent() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.sent))
	copy(out, c.sent)
	return out
}
