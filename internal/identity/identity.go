package identity

import (
	"context"
	"strings"

	firebaseSDK "firebase.google.com/go"
	firebaseAuth "firebase.google.com/go/auth"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/arzan03/coursehub/internal/apperr"
)

// Token is the part of a verified identity-provider token the API relies on.
type Token struct {
	UID           string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// Verifier checks ID tokens issued by an external identity provider.
type Verifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*Token, error)
}

// FirebaseVerifier verifies Firebase Auth ID tokens.
type FirebaseVerifier struct {
	client *firebaseAuth.Client
}

var _ Verifier = (*FirebaseVerifier)(nil)

// NewFirebaseVerifier initialises the Firebase app from a service account file.
func NewFirebaseVerifier(ctx context.Context, credentialsFile string) (*FirebaseVerifier, error) {
	app, err := firebaseSDK.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, errors.Wrap(err, "initialising firebase app")
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "initialising firebase auth client")
	}
	return &FirebaseVerifier{client: client}, nil
}

// VerifyIDToken checks a Firebase ID token and returns its claims.
func (v *FirebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*Token, error) {
	decoded, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, errors.Wrapf(apperr.ErrUnauthorized, "verifying id token: %v", err)
	}
	return fromClaims(decoded.UID, decoded.Claims), nil
}

func fromClaims(uid string, claims map[string]interface{}) *Token {
	t := &Token{UID: uid}
	if s, ok := claims["email"].(string); ok {
		t.Email = strings.ToLower(strings.TrimSpace(s))
	}
	if b, ok := claims["email_verified"].(bool); ok {
		t.EmailVerified = b
	}
	if s, ok := claims["name"].(string); ok {
		t.Name = s
	}
	if s, ok := claims["picture"].(string); ok {
		t.Picture = s
	}
	return t
}
