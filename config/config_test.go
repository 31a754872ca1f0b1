package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cfg, err := GetConfig()
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, "memory", cfg.HealthCacheBackend)
		assert.Equal(t, []string{"n8n.ml1.app"}, cfg.AllowedDomains())
		assert.Equal(t, DefaultRelayTimeout, cfg.RelayTimeout())
		assert.Equal(t, DefaultProbeTimeout, cfg.ProbeTimeout())
		assert.Equal(t, 30*time.Second, cfg.MonitorInterval())
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("PORT", "9090")
		t.Setenv("N8N_WEBHOOK_URL", "https://n8n.ml1.app/webhook/chat")
		t.Setenv("WEBHOOK_TIMEOUT_MS", "30000")
		t.Setenv("SKIP_EXTERNAL_HEALTH_CHECKS", "true")
		t.Setenv("ALLOWED_WEBHOOK_DOMAINS", "n8n.ml1.app, hooks.example.org")

		cfg, err := GetConfig()
		require.NoError(t, err)
		assert.Equal(t, "9090", cfg.Port)
		assert.Equal(t, "https://n8n.ml1.app/webhook/chat", cfg.DefaultWebhookURL)
		assert.True(t, cfg.SkipExternalChecks)
		assert.Equal(t, []string{"n8n.ml1.app", "hooks.example.org"}, cfg.AllowedDomains())
		assert.Equal(t, 30*time.Second, cfg.RelayTimeout())
		assert.Equal(t, 5*time.Second, cfg.ProbeTimeout())
	})

	t.Run("error - redis backend without address", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("HEALTH_CACHE_BACKEND", "redis")

		_, err := GetConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validating config")
	})

	t.Run("error - unknown backend", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("HEALTH_CACHE_BACKEND", "memcached")

		_, err := GetConfig()
		require.Error(t, err)
	})
}

func TestConfig_Timeouts(t *testing.T) {
	tests := []struct {
		name  string
		ms    int
		relay time.Duration
		probe time.Duration
	}{
		{"unset", 0, 10 * time.Second, 5 * time.Second},
		{"below range is ignored", 999, 10 * time.Second, 5 * time.Second},
		{"lower bound", 1000, time.Second, 500 * time.Millisecond},
		{"probe halved", 6000, 6 * time.Second, 3 * time.Second},
		{"probe capped", 20000, 20 * time.Second, 5 * time.Second},
		{"upper bound", 120000, 120 * time.Second, 5 * time.Second},
		{"above range is ignored", 120001, 10 * time.Second, 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{WebhookTimeoutMs: tt.ms}
			assert.Equal(t, tt.relay, cfg.RelayTimeout())
			assert.Equal(t, tt.probe, cfg.ProbeTimeout())
		})
	}
}
