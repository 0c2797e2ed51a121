package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/coursehub/internal/roles"
)

type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email       string             `bson:"email" json:"email"`
	Password    string             `bson:"password,omitempty" json:"-"`
	Name        string             `bson:"name" json:"name"`
	DisplayName string             `bson:"display_name,omitempty" json:"display_name,omitempty"`
	Role        roles.Role         `bson:"role" json:"role"`
	// Permissions holds per-user overrides on top of the role's table row.
	Permissions roles.Permissions `bson:"permissions,omitempty" json:"permissions,omitempty"`
	FirebaseUID string            `bson:"firebase_uid,omitempty" json:"-"`
	AvatarURL   string            `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	Disabled    bool              `bson:"disabled" json:"disabled"`
	LastLoginAt *time.Time        `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	CreatedAt   time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `bson:"updated_at" json:"updated_at"`
}

// EffectivePermissions is the role's permissions with the user's overrides applied.
func (u *User) EffectivePermissions() roles.Permissions {
	return roles.Effective(u.Role, u.Permissions)
}

func (u *User) Can(p roles.Permission) bool {
	return u.EffectivePermissions()[p]
}

// PublicName prefers the display name.
func (u *User) PublicName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Name
}
