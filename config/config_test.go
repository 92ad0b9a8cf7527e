package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"ENV", "DB_DRIVER", "SERVER_PORT", "CRYPTO_KEY", "CRYPTO_KEY_STRICT",
		"CORS_ALLOWED_ORIGINS", "EVENTS_BACKEND", "STORAGE_BACKEND", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	// t.Setenv cannot unset; empty values exercise the fallbacks that matter.
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("CRYPTO_KEY_STRICT", "maybe")
	t.Setenv("CORS_ALLOWED_ORIGINS", " , ")

	cfg := LoadConfig()

	require.Equal(t, 8080, cfg.ServerPort)
	require.True(t, cfg.Crypto.Strict)
	require.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	require.Equal(t, 5432, cfg.Database.Port)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/jobs.db")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CRYPTO_KEY", "secret")
	t.Setenv("CRYPTO_KEY_STRICT", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("EVENTS_BACKEND", "RabbitMQ")
	t.Setenv("STORAGE_BACKEND", "gcs")
	t.Setenv("GCS_BUCKET", "cv-backups")
	t.Setenv("ADMIN_JWT_SECRET", "admin-secret")
	t.Setenv("PUBSUB_SUBSCRIPTION", "ops-tail")

	cfg := LoadConfig()

	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "/tmp/jobs.db", cfg.Database.Path)
	require.Equal(t, 9090, cfg.ServerPort)
	require.Equal(t, "secret", cfg.Crypto.Key)
	require.False(t, cfg.Crypto.Strict)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	require.Equal(t, "rabbitmq", cfg.Events.Backend)
	require.Equal(t, "gcs", cfg.Storage.Backend)
	require.Equal(t, "cv-backups", cfg.Storage.GCS.Bucket)
	require.Equal(t, "admin-secret", cfg.Admin.JWTSecret)
	require.Equal(t, "ops-tail", cfg.Events.PubSub.Subscription)
}
