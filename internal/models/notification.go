package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	return s == SeverityInfo || s == SeverityWarning || s == SeverityCritical
}

// Notification is one message delivered to one recipient.
type Notification struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type        string             `bson:"type" json:"type"`
	RecipientID primitive.ObjectID `bson:"recipient_id" json:"recipient_id"`
	Title       string             `bson:"title" json:"title"`
	Message     string             `bson:"message" json:"message"`
	Severity    Severity           `bson:"severity" json:"severity"`
	Link        string             `bson:"link,omitempty" json:"link,omitempty"`
	Read        bool               `bson:"read" json:"read"`
	ReadAt      *time.Time         `bson:"read_at,omitempty" json:"read_at,omitempty"`
	SenderID    primitive.ObjectID `bson:"sender_id,omitempty" json:"sender_id,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
