package services

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/roles"
)

// Claims are carried by every session token. The session id ties the token
// to a server-side record so logout and role changes revoke it.
type Claims struct {
	SessionID string             `json:"sid"`
	Role      roles.Role         `json:"role"`
	Kind      models.SessionKind `json:"kind"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and parses HS256 session tokens.
type TokenIssuer struct {
	secret []byte
}

// NewTokenIssuer signs session tokens with HS256 under secret.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

// Issue generates a JWT for session s.
func (t *TokenIssuer) Issue(s *models.Session) (string, error) {
	claims := Claims{
		SessionID: s.ID,
		Role:      s.Role,
		Kind:      s.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID.Hex(),
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	return signed, errors.Wrap(err, "signing token")
}

// Parse verifies signature and expiry.
func (t *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, errors.Wrap(apperr.ErrUnauthorized, "invalid token")
	}
	if claims.SessionID == "" || claims.Subject == "" {
		return nil, errors.Wrap(apperr.ErrUnauthorized, "invalid token payload")
	}
	return claims, nil
}
