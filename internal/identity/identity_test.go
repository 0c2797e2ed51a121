package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromClaims(t *testing.T) {
	tok := fromClaims("uid-1", map[string]interface{}{
		"email":          " Ada@Example.com ",
		"email_verified": true,
		"name":           "Ada Lovelace",
		"picture":        "https://example.com/ada.png",
	})
	assert.Equal(t, "uid-1", tok.UID)
	assert.Equal(t, "ada@example.com", tok.Email)
	assert.True(t, tok.EmailVerified)
	assert.Equal(t, "Ada Lovelace", tok.Name)
	assert.Equal(t, "https://example.com/ada.png", tok.Picture)

	bare := fromClaims("uid-2", map[string]interface{}{"email": 42})
	assert.Empty(t, bare.Email)
	assert.False(t, bare.EmailVerified)
}
