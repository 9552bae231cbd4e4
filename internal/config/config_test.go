package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("AUTH_TOKEN_TTL_MINUTES", "")
	t.Setenv("AUTH_BCRYPT_COST", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, defaultJWTSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Zero(t, cfg.Auth.TokenTTL())
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, time.Minute, cfg.Redis.StatsCacheTTL())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_HOST", "127.0.0.1")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("AUTH_TOKEN_TTL_MINUTES", "15")
	t.Setenv("AUTH_BCRYPT_COST", "4")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.App.Addr())
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL())
	assert.Equal(t, 4, cfg.Auth.BcryptCost)
	assert.Equal(t, 5*time.Second, cfg.App.RequestTimeout())
	assert.False(t, cfg.App.IsDevelopment())
}

func TestLoadRequiresSecretOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsMalformedRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")

	_, err := Load()
	assert.Error(t, err)
}
