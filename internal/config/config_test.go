package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "TEST", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "admin_token", cfg.AdminCookie)
	assert.Equal(t, "user_token", cfg.UserCookie)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.Equal(t, "http://localhost:9000/coursehub-media", cfg.MediaPublicURL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "9999")
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("NOTIFY_RATE_LIMIT", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 3, cfg.NotifyRateLimit)
	assert.False(t, cfg.IsDev())
}

func TestValidate(t *testing.T) {
	cfg := &Config{Env: "PROD", StoreDriver: "mongo", SessionTTL: time.Hour}
	assert.Error(t, cfg.Validate(), "missing secret outside dev")

	cfg = &Config{Env: "PROD", JWTSecret: "x", StoreDriver: "sql", SessionTTL: time.Hour}
	assert.Error(t, cfg.Validate())

	cfg = &Config{Env: "PROD", JWTSecret: "x", StoreDriver: "mongo", SessionTTL: time.Hour}
	assert.Error(t, cfg.Validate(), "media size limit must be positive")

	cfg = &Config{Env: "PROD", JWTSecret: "x", StoreDriver: "mongo", SessionTTL: time.Hour, MediaMaxBytes: 1 << 20, MinioEndpoint: "cdn:9000", MinioBucket: "b", MinioUseSSL: true}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://cdn:9000/b", cfg.MediaPublicURL)
	assert.Equal(t, 1, cfg.NotifyWorkers)
	assert.Equal(t, 10, cfg.NotifyRateLimit)
}
