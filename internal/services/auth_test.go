package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/identity"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/roles"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auth := env.svc.Auth

	u, err := auth.Register(ctx, RegisterInput{Email: " Ada@Example.com ", Password: "password123", Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, roles.User, u.Role)
	assert.NotEqual(t, "password123", u.Password)

	_, err = auth.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "password123", Name: "Ada"})
	assert.Equal(t, 409, apperr.Status(err))

	_, err = auth.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "short", Name: "Bob"})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "password")

	_, err = auth.Login(ctx, LoginInput{Email: "ada@example.com", Password: "wrong-password"}, models.SessionUser, ClientInfo{})
	assert.Equal(t, 401, apperr.Status(err))

	res, err := auth.Login(ctx, LoginInput{Email: "ADA@example.com", Password: "password123"}, models.SessionUser, ClientInfo{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.NotNil(t, res.User.LastLoginAt)

	got, session, err := auth.Authenticate(ctx, res.Token, models.SessionUser)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "10.0.0.1", session.IP)

	_, _, err = auth.Authenticate(ctx, res.Token, models.SessionAdmin)
	assert.Equal(t, 401, apperr.Status(err))

	require.NoError(t, auth.Logout(ctx, session.ID))
	_, _, err = auth.Authenticate(ctx, res.Token, models.SessionUser)
	assert.Equal(t, 401, apperr.Status(err))
	assert.NoError(t, auth.Logout(ctx, session.ID))
}

func TestAdminLoginRequiresStaff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.user(t, "learner@example.com", roles.User)
	env.user(t, "staff@example.com", roles.Staff)

	_, err := env.svc.Auth.Login(ctx, LoginInput{Email: "learner@example.com", Password: "password123"}, models.SessionAdmin, ClientInfo{})
	assert.Equal(t, 403, apperr.Status(err))

	res, err := env.svc.Auth.Login(ctx, LoginInput{Email: "staff@example.com", Password: "password123"}, models.SessionAdmin, ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, models.SessionAdmin, res.Session.Kind)
}

func TestAuthenticateSeesFreshUserState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "ada@example.com", roles.User)

	res, err := env.svc.Auth.Login(ctx, LoginInput{Email: u.Email, Password: "password123"}, models.SessionUser, ClientInfo{})
	require.NoError(t, err)

	disabled := true
	_, err = env.store.Users.Patch(ctx, u.ID, db.UserPatch{Disabled: &disabled})
	require.NoError(t, err)

	_, _, err = env.svc.Auth.Authenticate(ctx, res.Token, models.SessionUser)
	assert.Equal(t, 403, apperr.Status(err))
}

func TestExpiredSessionIsRejected(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.SessionTTL = time.Minute })
	ctx := context.Background()
	u := env.user(t, "ada@example.com", roles.User)

	res, err := env.svc.Auth.Login(ctx, LoginInput{Email: u.Email, Password: "password123"}, models.SessionUser, ClientInfo{})
	require.NoError(t, err)

	env.svc.Auth.clock = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, _, err = env.svc.Auth.Authenticate(ctx, res.Token, models.SessionUser)
	assert.Equal(t, 401, apperr.Status(err))
}

func TestTokenIssuerRejectsForeignTokens(t *testing.T) {
	a := NewTokenIssuer("one")
	b := NewTokenIssuer("two")
	s := &models.Session{ID: "sid", Kind: models.SessionUser, CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}

	token, err := a.Issue(s)
	require.NoError(t, err)

	claims, err := a.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "sid", claims.SessionID)

	_, err = b.Parse(token)
	assert.Equal(t, 401, apperr.Status(err))
	_, err = a.Parse("not-a-token")
	assert.Equal(t, 401, apperr.Status(err))
}

func TestLoginWithIDToken(t *testing.T) {
	verifier := &fakeVerifier{tokens: map[string]*identity.Token{
		"existing": {UID: "fb-1", Email: "ada@example.com", Name: "Ada", EmailVerified: true},
		"new":      {UID: "fb-2", Email: "grace@example.com", Name: "Grace", EmailVerified: true},
	}}
	env := newTestEnv(t, func(o *Options) { o.Identity = verifier })
	ctx := context.Background()
	existing := env.user(t, "ada@example.com", roles.User)

	res, err := env.svc.Auth.LoginWithIDToken(ctx, "existing", ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, res.User.ID)
	assert.Equal(t, "fb-1", res.User.FirebaseUID)

	res, err = env.svc.Auth.LoginWithIDToken(ctx, "new", ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", res.User.Email)
	assert.Equal(t, roles.User, res.User.Role)

	again, err := env.svc.Auth.LoginWithIDToken(ctx, "new", ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, again.User.ID)

	_, err = env.svc.Auth.LoginWithIDToken(ctx, "forged", ClientInfo{})
	assert.Error(t, err)
}

func TestLoginWithIDTokenRequiresVerifiedEmail(t *testing.T) {
	verifier := &fakeVerifier{tokens: map[string]*identity.Token{
		"takeover": {UID: "fb-evil", Email: "root@example.com", EmailVerified: false},
		"stranger": {UID: "fb-new", Email: "new@example.com", EmailVerified: false},
	}}
	env := newTestEnv(t, func(o *Options) { o.Identity = verifier })
	ctx := context.Background()
	root := env.user(t, "root@example.com", roles.SuperAdmin)

	_, err := env.svc.Auth.LoginWithIDToken(ctx, "takeover", ClientInfo{})
	assert.Equal(t, 401, apperr.Status(err))

	stored, err := env.store.Users.GetByID(ctx, root.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.FirebaseUID)

	_, err = env.svc.Auth.LoginWithIDToken(ctx, "stranger", ClientInfo{})
	assert.Equal(t, 401, apperr.Status(err))
	_, err = env.store.Users.GetByEmail(ctx, "new@example.com")
	assert.Equal(t, 404, apperr.Status(err))
}

func TestPasswordLimitIsMeasuredInBytes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Auth.Register(ctx, RegisterInput{Email: "ada@example.com", Password: strings.Repeat("é", 40), Name: "Ada"})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "password")

	u := env.user(t, "bob@example.com", roles.User)
	err = env.svc.Auth.ChangePassword(ctx, u, ChangePasswordInput{CurrentPassword: "password123", NewPassword: strings.Repeat("密", 30)})
	assert.Equal(t, 400, apperr.Status(err))
}

func TestLoginWithIDTokenUnavailable(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Auth.LoginWithIDToken(context.Background(), "anything", ClientInfo{})
	assert.Equal(t, 503, apperr.Status(err))
}

func TestResetPasswordRevokesSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "ada@example.com", roles.User)

	res, err := env.svc.Auth.Login(ctx, LoginInput{Email: u.Email, Password: "password123"}, models.SessionUser, ClientInfo{})
	require.NoError(t, err)

	_, err = env.svc.Auth.ResetPassword(ctx, u.Email, "brand-new-pass")
	require.NoError(t, err)

	_, _, err = env.svc.Auth.Authenticate(ctx, res.Token, models.SessionUser)
	assert.Equal(t, 401, apperr.Status(err))
	_, err = env.svc.Auth.Login(ctx, LoginInput{Email: u.Email, Password: "brand-new-pass"}, models.SessionUser, ClientInfo{})
	assert.NoError(t, err)
}

func TestEnsureSuperAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, created, err := env.svc.Auth.EnsureSuperAdmin(ctx, "root@example.com", "Root", "password123")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, roles.SuperAdmin, u.Role)

	env.user(t, "staff@example.com", roles.Staff)
	u, created, err = env.svc.Auth.EnsureSuperAdmin(ctx, "staff@example.com", "Staff", "password456")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, roles.SuperAdmin, u.Role)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "ada@example.com", roles.User)

	err := env.svc.Auth.ChangePassword(ctx, u, ChangePasswordInput{CurrentPassword: "nope", NewPassword: "another-pass"})
	assert.Equal(t, 400, apperr.Status(err))

	require.NoError(t, env.svc.Auth.ChangePassword(ctx, u, ChangePasswordInput{CurrentPassword: "password123", NewPassword: "another-pass"}))
	_, err = env.svc.Auth.Login(ctx, LoginInput{Email: u.Email, Password: "another-pass"}, models.SessionUser, ClientInfo{})
	assert.NoError(t, err)
}

func TestChangePasswordKeepsConcurrentRoleChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "ada@example.com", roles.Admin)

	stale, err := env.store.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	demoted, disabled := roles.User, true
	_, err = env.store.Users.Patch(ctx, u.ID, db.UserPatch{Role: &demoted, Disabled: &disabled})
	require.NoError(t, err)

	require.NoError(t, env.svc.Auth.ChangePassword(ctx, stale, ChangePasswordInput{CurrentPassword: "password123", NewPassword: "another-pass"}))

	stored, err := env.store.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, roles.User, stored.Role)
	assert.True(t, stored.Disabled)
	assert.True(t, VerifyPassword("another-pass", stored.Password))
}
