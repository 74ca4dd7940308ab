package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/ir-portal/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("ENV", "DEV")

	c, err := config.New()
	require.NoError(t, err)

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "http://localhost:8080", c.GetBaseURL())
	require.Equal(t, "http://localhost:54321", c.GetProviderURL())
	require.Equal(t, 10*time.Second, c.GetProviderTimeout())
	require.Equal(t, "authenticated", c.GetJWTAudience())
	require.False(t, c.GetVerifyJWT())
	require.Equal(t, "ir-auth-token", c.GetSessionCookieName())
	require.Equal(t, 168*time.Hour, c.GetMaxSessionAge())
	require.GreaterOrEqual(t, len(c.GetCookieSecret()), config.MinCookieSecretLength)
}

func TestNew_FromEnvironment(t *testing.T) {
	t.Setenv("ENV", "PROD")
	t.Setenv("PORT", "9090")
	t.Setenv("BASE_URL", "https://ir.example.com/")
	t.Setenv("IDENTITY_PROVIDER_URL", "https://abc.supabase.co/")
	t.Setenv("IDENTITY_PROVIDER_TIMEOUT", "3s")
	t.Setenv("IDENTITY_VERIFY_JWT", "true")
	t.Setenv("COOKIE_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("SESSION_MAX_AGE", "12h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	c, err := config.New()
	require.NoError(t, err)

	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, "https://ir.example.com", c.GetBaseURL())
	require.Equal(t, "https://abc.supabase.co", c.GetProviderURL())
	require.Equal(t, 3*time.Second, c.GetProviderTimeout())
	require.True(t, c.GetVerifyJWT())
	require.Equal(t, 12*time.Hour, c.GetMaxSessionAge())

	origins := c.GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://a.example.com"))
	require.True(t, origins.IsAllowedOrigin("https://b.example.com"))
	require.False(t, origins.IsAllowedOrigin("https://evil.example"))
}

func TestNew_CookieSecret(t *testing.T) {
	t.Run("required outside DEV", func(t *testing.T) {
		t.Setenv("ENV", "PROD")
		t.Setenv("COOKIE_SECRET", "")
		_, err := config.New()
		require.Error(t, err)
	})

	t.Run("too short", func(t *testing.T) {
		t.Setenv("ENV", "DEV")
		t.Setenv("COOKIE_SECRET", "short")
		_, err := config.New()
		require.ErrorContains(t, err, "COOKIE_SECRET")
	})
}

func TestNew_InvalidDuration(t *testing.T) {
	t.Setenv("IDENTITY_PROVIDER_TIMEOUT", "soon")
	_, err := config.New()
	require.Error(t, err)
}
