package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearAuthEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "SERVER_ADDR", "SERVER_URL", "MAX_DB_CONNECTIONS", "DEBUG",
		"ACCESS_TOKEN_MINUTES", "REFRESH_TOKEN_MINUTES", "JWT_SECRET", "REFRESH_SECRET",
		"JWT_ISSUER", "JWT_AUDIENCE", "API_TOKEN", "AUTH_REFRESH_COOKIE", "COOKIE_SECURE",
		"COOKIE_DOMAIN", "COOKIE_SAMESITE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	clearAuthEnv(t)
	_, err := Load()
	require.Error(t, err)
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	clearAuthEnv(t)
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", cfg.ServerAddr)
	assert.Equal(t, 25, cfg.MaxDBConnections)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, "test-secret", cfg.Auth.RefreshSecret, "refresh secret defaults to the access secret when unset")
	assert.Equal(t, "statectl_refresh_token", cfg.Cookie.RefreshCookieName)
	assert.Equal(t, "lax", cfg.Cookie.SameSite)
}

func TestLoadHonorsExplicitOverrides(t *testing.T) {
	clearAuthEnv(t)
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("REFRESH_SECRET", "refresh-secret")
	t.Setenv("ACCESS_TOKEN_MINUTES", "15")
	t.Setenv("DEBUG", "true")
	t.Setenv("MAX_DB_CONNECTIONS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "refresh-secret", cfg.Auth.RefreshSecret)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 25, cfg.MaxDBConnections, "an unparsable int falls back to the default")
}
