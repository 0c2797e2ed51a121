package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/logger"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/roles"
	"github.com/arzan03/coursehub/internal/validate"
)

type CreateUserInput struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,bcryptlen"`
	Name        string `json:"name" validate:"required,max=120"`
	DisplayName string `json:"display_name" validate:"max=120"`
	Role        string `json:"role" validate:"required,role"`
}

// UpdateUserInput carries optional changes; nil fields are left alone.
type UpdateUserInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=120"`
	DisplayName *string `json:"display_name" validate:"omitempty,max=120"`
	Disabled    *bool   `json:"disabled"`
}

type ProfileInput struct {
	Name        string `json:"name" validate:"required,max=120"`
	DisplayName string `json:"display_name" validate:"max=120"`
}

// UserService manages accounts for admins and profiles for their owners.
type UserService struct {
	users  db.Users
	carts  db.Carts
	auth   *AuthService
	notify *Dispatcher
	audit  *Auditor
	log    logger.Logger
	clock  clock
}

// NewUserService wires account management.
func NewUserService(users db.Users, carts db.Carts, auth *AuthService, notify *Dispatcher, audit *Auditor, log logger.Logger) *UserService {
	return &UserService{users: users, carts: carts, auth: auth, notify: notify, audit: audit, log: log}
}

// List pages through users.
func (s *UserService) List(ctx context.Context, f db.UserFilter) ([]models.User, int64, error) {
	return s.users.List(ctx, f)
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// Create adds an account with an explicit role the actor is allowed to assign.
func (s *UserService) Create(ctx context.Context, actor *models.User, in CreateUserInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	role := roles.Parse(in.Role)
	if !roles.CanAssign(actor.Role, role) {
		return nil, errors.Wrapf(apperr.ErrForbidden, "cannot assign role %s", role)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.clock.now()
	user := &models.User{
		Email:       in.Email,
		Password:    hash,
		Name:        strings.TrimSpace(in.Name),
		DisplayName: strings.TrimSpace(in.DisplayName),
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if isConflict(err) {
			return nil, errors.Wrap(apperr.ErrConflict, "email already in use")
		}
		return nil, err
	}
	s.audit.Record(ctx, Entry{
		Actor:      actor,
		Action:     ActionCreate,
		Resource:   "user",
		ResourceID: user.ID.Hex(),
		Details:    map[string]interface{}{"email": user.Email, "role": string(role)},
	})
	return user, nil
}

func (s *UserService) manageable(ctx context.Context, actor *models.User, id primitive.ObjectID) (*models.User, error) {
	target, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !roles.CanManage(actor.Role, target.Role) {
		return nil, errors.Wrapf(apperr.ErrForbidden, "cannot manage a %s", target.Role)
	}
	return target, nil
}

// Update edits another account. Disabling an account ends its sessions.
func (s *UserService) Update(ctx context.Context, actor *models.User, id primitive.ObjectID, in UpdateUserInput) (*models.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Disabled != nil && id == actor.ID {
		return nil, errors.Wrap(apperr.ErrForbidden, "cannot disable your own account")
	}

	var target *models.User
	var err error
	if id == actor.ID {
		target, err = s.users.GetByID(ctx, id)
	} else {
		target, err = s.manageable(ctx, actor, id)
	}
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	patch := db.UserPatch{UpdatedAt: &now}
	changes := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		patch.Name = &name
		changes["name"] = name
	}
	if in.DisplayName != nil {
		display := strings.TrimSpace(*in.DisplayName)
		patch.DisplayName = &display
		changes["display_name"] = display
	}
	disabling := in.Disabled != nil && *in.Disabled && !target.Disabled
	if in.Disabled != nil {
		patch.Disabled = in.Disabled
		changes["disabled"] = *in.Disabled
	}
	if target, err = s.users.Patch(ctx, target.ID, patch); err != nil {
		return nil, err
	}
	if disabling {
		if err := s.auth.RevokeAll(ctx, target.ID); err != nil {
			return nil, err
		}
	}
	s.audit.Record(ctx, Entry{Actor: actor, Action: ActionUpdate, Resource: "user", ResourceID: target.ID.Hex(), Details: changes})
	return target, nil
}

// ChangeRole moves a user to another role. The target's sessions are revoked
// so the new role is picked up on the next sign-in.
func (s *UserService) ChangeRole(ctx context.Context, actor *models.User, id primitive.ObjectID, roleName string) (*models.User, error) {
	role := roles.Parse(roleName)
	if !role.Valid() {
		return nil, apperr.NewValidationError("role", "role must be one of user, staff, facilitator, admin, super_admin")
	}
	target, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !roles.CanAssign(actor.Role, role) {
		return nil, errors.Wrapf(apperr.ErrForbidden, "cannot assign role %s", role)
	}
	previous := target.Role
	if previous == role {
		return target, nil
	}

	now := s.clock.now()
	if target, err = s.users.Patch(ctx, target.ID, db.UserPatch{Role: &role, UpdatedAt: &now}); err != nil {
		return nil, err
	}
	if err := s.auth.RevokeAll(ctx, target.ID); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, Entry{
		Actor:      actor,
		Action:     ActionRoleChange,
		Resource:   "user",
		ResourceID: target.ID.Hex(),
		Details:    map[string]interface{}{"from": string(previous), "to": string(role), "email": target.Email},
		Sensitive:  true,
	})
	if _, err := s.notify.Send(ctx, Message{
		Type:     "role_change",
		Title:    "Your role has changed",
		Message:  fmt.Sprintf("Your role was changed from %s to %s. Please sign in again.", previous, role),
		Severity: models.SeverityWarning,
		SenderID: actor.ID,
	}, ToUsers(target.ID)); err != nil {
		s.log.Error("notifying role change", err, target.ID.Hex())
	}
	return target, nil
}

// Delete removes another account along with its sessions and cart.
func (s *UserService) Delete(ctx context.Context, actor *models.User, id primitive.ObjectID) error {
	if id == actor.ID {
		return errors.Wrap(apperr.ErrForbidden, "cannot delete your own account")
	}
	target, err := s.manageable(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, target.ID); err != nil {
		return err
	}
	if err := s.auth.RevokeAll(ctx, target.ID); err != nil {
		return err
	}
	if err := s.carts.Clear(ctx, target.ID); err != nil {
		return errors.Wrap(err, "clearing cart")
	}
	s.audit.Record(ctx, Entry{
		Actor:      actor,
		Action:     ActionDelete,
		Resource:   "user",
		ResourceID: target.ID.Hex(),
		Details:    map[string]interface{}{"email": target.Email, "role": string(target.Role)},
		Sensitive:  true,
	})
	return nil
}

// UpdateProfile edits the caller's own names.
func (s *UserService) UpdateProfile(ctx context.Context, user *models.User, in ProfileInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	now := s.clock.now()
	return s.users.Patch(ctx, user.ID, db.UserPatch{Name: &in.Name, DisplayName: &in.DisplayName, UpdatedAt: &now})
}

// SetAvatar points the user's avatar at url.
func (s *UserService) SetAvatar(ctx context.Context, user *models.User, url string) (*models.User, error) {
	now := s.clock.now()
	return s.users.Patch(ctx, user.ID, db.UserPatch{AvatarURL: &url, UpdatedAt: &now})
}
