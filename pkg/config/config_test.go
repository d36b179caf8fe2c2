package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, EnvDevelopment, cfg.Env)
	require.Equal(t, "/api", cfg.APIPrefix)
	require.Equal(t, 50, cfg.Mail.BatchSize)
	require.Equal(t, time.Second, cfg.Mail.BatchDelay)
	require.False(t, cfg.SMTP.Enabled)
	require.Equal(t, 72*time.Hour, cfg.Storage.SignedURLTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAIL_BATCH_SIZE", "0")
	t.Setenv("MAIL_BATCH_DELAY", "250ms")
	t.Setenv("PUBLIC_BASE_URL", "https://academy.example.com/")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com ,")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 50, cfg.Mail.BatchSize)
	require.Equal(t, 250*time.Millisecond, cfg.Mail.BatchDelay)
	require.Equal(t, "https://academy.example.com", cfg.Mail.PublicBaseURL)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestParseDurationFallback(t *testing.T) {
	require.Equal(t, time.Minute, parseDuration("", time.Minute))
	require.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	require.Equal(t, 2*time.Hour, parseDuration("2h", time.Minute))
}
