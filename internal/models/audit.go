package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/coursehub/internal/roles"
)

type AuditLog struct {
	ID         primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	ActorID    primitive.ObjectID     `bson:"actor_id" json:"actor_id"`
	ActorRole  roles.Role             `bson:"actor_role" json:"actor_role"`
	Action     string                 `bson:"action" json:"action"`
	Resource   string                 `bson:"resource" json:"resource"`
	ResourceID string                 `bson:"resource_id,omitempty" json:"resource_id,omitempty"`
	Details    map[string]interface{} `bson:"details,omitempty" json:"details,omitempty"`
	IP         string                 `bson:"ip,omitempty" json:"ip,omitempty"`
	CreatedAt  time.Time              `bson:"created_at" json:"created_at"`
}
