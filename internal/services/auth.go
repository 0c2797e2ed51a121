package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/identity"
	"github.com/arzan03/coursehub/internal/logger"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/roles"
	"github.com/arzan03/coursehub/internal/validate"
)

var errInvalidCredentials = errors.Wrap(apperr.ErrUnauthorized, "invalid credentials")

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), errors.Wrap(err, "hashing password")
}

// VerifyPassword compares a plain password with a hashed password
func VerifyPassword(password, hash string) bool {
	return hash != "" && bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ClientInfo is recorded on new sessions.
type ClientInfo struct {
	UserAgent string
	IP        string
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,bcryptlen"`
	Name     string `json:"name" validate:"required,max=120"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is a freshly opened session.
type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      *models.User    `json:"user"`
	Session   *models.Session `json:"-"`
}

// AuthService handles sign-in and sessions.
type AuthService struct {
	users    db.Users
	sessions db.Sessions
	tokens   *TokenIssuer
	identity identity.Verifier
	ttl      time.Duration
	log      logger.Logger
	clock    clock
}

// NewAuthService wires authentication. idp may be nil when no identity provider is configured.
func NewAuthService(users db.Users, sessions db.Sessions, tokens *TokenIssuer, idp identity.Verifier, ttl time.Duration, log logger.Logger) *AuthService {
	return &AuthService{users: users, sessions: sessions, tokens: tokens, identity: idp, ttl: ttl, log: log}
}

// Register creates a regular user account.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, errors.Wrap(apperr.ErrConflict, "email already in use")
	} else if !isNotFound(err) {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.clock.now()
	user := &models.User{
		Email:     in.Email,
		Password:  hash,
		Name:      in.Name,
		Role:      roles.User,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if isConflict(err) {
			return nil, errors.Wrap(apperr.ErrConflict, "email already in use")
		}
		return nil, err
	}
	return user, nil
}

// Login checks email and password and opens a session of the given kind.
// Admin sessions require at least the staff role.
func (s *AuthService) Login(ctx context.Context, in LoginInput, kind models.SessionKind, client ClientInfo) (*LoginResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if isNotFound(err) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !VerifyPassword(in.Password, user.Password) {
		return nil, errInvalidCredentials
	}
	return s.open(ctx, user, kind, client)
}

// LoginWithIDToken signs a user in with an identity-provider token, linking
// an existing account by email or creating a new one. Linking and creation
// require a verified email.
func (s *AuthService) LoginWithIDToken(ctx context.Context, idToken string, client ClientInfo) (*LoginResult, error) {
	if s.identity == nil {
		return nil, errors.Wrap(apperr.ErrUnavailable, "identity provider not configured")
	}
	if strings.TrimSpace(idToken) == "" {
		return nil, apperr.NewValidationError("id_token", "id_token is required")
	}
	tok, err := s.identity.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}

	user, err := s.findOrCreateFromToken(ctx, tok)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, user, models.SessionUser, client)
}

func (s *AuthService) findOrCreateFromToken(ctx context.Context, tok *identity.Token) (*models.User, error) {
	user, err := s.users.GetByFirebaseUID(ctx, tok.UID)
	if err == nil {
		return user, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	if tok.Email == "" {
		return nil, errors.Wrap(apperr.ErrUnauthorized, "identity token has no email")
	}
	if !tok.EmailVerified {
		return nil, errors.Wrap(apperr.ErrUnauthorized, "identity provider email is not verified")
	}

	now := s.clock.now()
	user, err = s.users.GetByEmail(ctx, tok.Email)
	switch {
	case err == nil:
		patch := db.UserPatch{FirebaseUID: &tok.UID, UpdatedAt: &now}
		if user.AvatarURL == "" && tok.Picture != "" {
			patch.AvatarURL = &tok.Picture
		}
		return s.users.Patch(ctx, user.ID, patch)
	case !isNotFound(err):
		return nil, err
	}

	name := tok.Name
	if name == "" {
		name = strings.SplitN(tok.Email, "@", 2)[0]
	}
	user = &models.User{
		Email:       tok.Email,
		Name:        name,
		Role:        roles.User,
		FirebaseUID: tok.UID,
		AvatarURL:   tok.Picture,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) open(ctx context.Context, user *models.User, kind models.SessionKind, client ClientInfo) (*LoginResult, error) {
	if user.Disabled {
		return nil, errors.Wrap(apperr.ErrForbidden, "account disabled")
	}
	if kind == models.SessionAdmin && !user.Role.IsStaff() {
		return nil, errors.Wrap(apperr.ErrForbidden, "admin access required")
	}

	now := s.clock.now()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Role:      user.Role,
		Kind:      kind,
		UserAgent: client.UserAgent,
		IP:        client.IP,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, errors.Wrap(err, "creating session")
	}
	token, err := s.tokens.Issue(session)
	if err != nil {
		return nil, err
	}

	if fresh, err := s.users.Patch(ctx, user.ID, db.UserPatch{LastLoginAt: &now}); err != nil {
		s.log.Warn("recording last login", err, user.ID.Hex())
	} else {
		user = fresh
	}
	return &LoginResult{Token: token, ExpiresAt: session.ExpiresAt, User: user, Session: session}, nil
}

// Authenticate resolves a session token of the given kind to its session and
// the current state of its user.
func (s *AuthService) Authenticate(ctx context.Context, token string, kind models.SessionKind) (*models.User, *models.Session, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, nil, err
	}
	if claims.Kind != kind {
		return nil, nil, errors.Wrap(apperr.ErrUnauthorized, "wrong session kind")
	}

	session, err := s.sessions.Get(ctx, claims.SessionID)
	if isNotFound(err) {
		return nil, nil, errors.Wrap(apperr.ErrUnauthorized, "session revoked")
	}
	if err != nil {
		return nil, nil, err
	}
	if session.Expired(s.clock.now()) {
		_ = s.sessions.Delete(ctx, session.ID)
		return nil, nil, errors.Wrap(apperr.ErrUnauthorized, "session expired")
	}
	if session.UserID.Hex() != claims.Subject {
		return nil, nil, errors.Wrap(apperr.ErrUnauthorized, "session mismatch")
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if isNotFound(err) {
		return nil, nil, errors.Wrap(apperr.ErrUnauthorized, "user no longer exists")
	}
	if err != nil {
		return nil, nil, err
	}
	if user.Disabled {
		return nil, nil, errors.Wrap(apperr.ErrForbidden, "account disabled")
	}
	if kind == models.SessionAdmin && !user.Role.IsStaff() {
		return nil, nil, errors.Wrap(apperr.ErrForbidden, "admin access required")
	}
	return user, session, nil
}

// Logout deletes the session. Unknown sessions are ignored.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	err := s.sessions.Delete(ctx, sessionID)
	if isNotFound(err) {
		return nil
	}
	return err
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required,min=8,bcryptlen"`
}

// ChangePassword replaces the user's password. Accounts created through the
// identity provider have no password yet and may set one directly. Only the
// password hash is written.
func (s *AuthService) ChangePassword(ctx context.Context, user *models.User, in ChangePasswordInput) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	if user.Password != "" && !VerifyPassword(in.CurrentPassword, user.Password) {
		return apperr.NewValidationError("current_password", "current password is incorrect")
	}
	hash, err := HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	now := s.clock.now()
	_, err = s.users.Patch(ctx, user.ID, db.UserPatch{Password: &hash, UpdatedAt: &now})
	return err
}

// ResetPassword sets a new password for email and revokes every session of that user.
func (s *AuthService) ResetPassword(ctx context.Context, email, password string) (*models.User, error) {
	if err := validate.Struct(ChangePasswordInput{NewPassword: password}); err != nil {
		return nil, err
	}
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := s.clock.now()
	if user, err = s.users.Patch(ctx, user.ID, db.UserPatch{Password: &hash, UpdatedAt: &now}); err != nil {
		return nil, err
	}
	return user, s.RevokeAll(ctx, user.ID)
}

// EnsureSuperAdmin creates a super admin, or promotes and re-passwords an existing account.
func (s *AuthService) EnsureSuperAdmin(ctx context.Context, email, name, password string) (*models.User, bool, error) {
	in := RegisterInput{Email: normalizeEmail(email), Password: password, Name: strings.TrimSpace(name)}
	if err := validate.Struct(in); err != nil {
		return nil, false, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, false, err
	}
	now := s.clock.now()

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err == nil {
		role, enabled := roles.SuperAdmin, false
		user, err = s.users.Patch(ctx, user.ID, db.UserPatch{Role: &role, Password: &hash, Disabled: &enabled, UpdatedAt: &now})
		if err != nil {
			return nil, false, err
		}
		return user, false, s.RevokeAll(ctx, user.ID)
	}
	if !isNotFound(err) {
		return nil, false, err
	}

	user = &models.User{
		Email:     in.Email,
		Password:  hash,
		Name:      in.Name,
		Role:      roles.SuperAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// RevokeAll ends every session of a user.
func (s *AuthService) RevokeAll(ctx context.Context, userID primitive.ObjectID) error {
	return errors.Wrap(s.sessions.DeleteByUser(ctx, userID), "revoking sessions")
}
