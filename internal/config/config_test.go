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
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("AUTH_REFRESH_TOKEN_TTL_DAYS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, devJWTSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.RefreshTokenTTL())
	assert.True(t, cfg.Auth.CookieSecure)
	assert.False(t, cfg.Auth.RefreshRedirect)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "a-real-secret")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "5")
	t.Setenv("AUTH_REFRESH_TOKEN_TTL_DAYS", "7")
	t.Setenv("AUTH_COOKIE_SECURE", "false")
	t.Setenv("AUTH_LOGIN_MAX_ATTEMPTS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL())
	assert.False(t, cfg.Auth.CookieSecure)
	assert.Equal(t, 5, cfg.Auth.LoginMaxAttempts, "invalid ints fall back to the default")
}

func TestValidateRejectsDevSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
}

func TestValidateTTLOrdering(t *testing.T) {
	cfg := &Config{
		App: AppConfig{Env: "development"},
		Auth: AuthConfig{
			JWTSecret:             "secret",
			AccessTokenTTLMinutes: 2 * 24 * 60,
			RefreshTokenTTLDays:   1,
		},
	}
	assert.Error(t, cfg.Validate())

	cfg.Auth.AccessTokenTTLMinutes = 15
	assert.NoError(t, cfg.Validate())

	cfg.Auth.RefreshTokenTTLDays = 0
	assert.Error(t, cfg.Validate())
}
