package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

/* Config is built once at process start and handed to every constructor.
 * Request handling code never reads the environment directly.
 */

const (
	// MinTimeoutMs and MaxTimeoutMs bound WEBHOOK_TIMEOUT_MS
	MinTimeoutMs = 1000
	MaxTimeoutMs = 120000

	DefaultRelayTimeout = 10 * time.Second
	DefaultProbeTimeout = 5 * time.Second
)

type Config struct {
	Port                  string `mapstructure:"PORT" validate:"required,numeric"`
	DefaultWebhookURL     string `mapstructure:"N8N_WEBHOOK_URL" validate:"omitempty,url"`
	DefaultWebhookSecret  string `mapstructure:"N8N_WEBHOOK_SECRET"`
	WebhookTimeoutMs      int    `mapstructure:"WEBHOOK_TIMEOUT_MS" validate:"gte=0"`
	SkipExternalChecks    bool   `mapstructure:"SKIP_EXTERNAL_HEALTH_CHECKS"`
	AllowedWebhookDomains string `mapstructure:"ALLOWED_WEBHOOK_DOMAINS"`
	EndpointsFile         string `mapstructure:"ENDPOINTS_FILE"`
	HealthCacheBackend    string `mapstructure:"HEALTH_CACHE_BACKEND" validate:"oneof=memory redis"`
	RedisAddr             string `mapstructure:"REDIS_ADDR" validate:"required_if=HealthCacheBackend redis"`
	RedisPassword         string `mapstructure:"REDIS_PASSWORD"`
	RedisDB               int    `mapstructure:"REDIS_DB" validate:"gte=0"`
	MonitorIntervalSecs   int    `mapstructure:"HEALTH_MONITOR_INTERVAL_SECONDS" validate:"gte=0"`
	CORSAllowedOrigins    string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

// GetConfig loads .env (when present) and the process environment into a Config
func GetConfig() (*Config, error) {
	// a missing .env is fine, the environment may already carry everything
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("N8N_WEBHOOK_URL", "")
	v.SetDefault("N8N_WEBHOOK_SECRET", "")
	v.SetDefault("WEBHOOK_TIMEOUT_MS", 0)
	v.SetDefault("SKIP_EXTERNAL_HEALTH_CHECKS", false)
	v.SetDefault("ALLOWED_WEBHOOK_DOMAINS", "n8n.ml1.app")
	v.SetDefault("ENDPOINTS_FILE", "")
	v.SetDefault("HEALTH_CACHE_BACKEND", "memory")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("HEALTH_MONITOR_INTERVAL_SECONDS", 30)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
}

// Validate checks the struct tags of the configuration
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// RelayTimeout is the deadline for message relays.
// WEBHOOK_TIMEOUT_MS outside [MinTimeoutMs, MaxTimeoutMs] is ignored.
func (c *Config) RelayTimeout() time.Duration {
	if !timeoutInRange(c.WebhookTimeoutMs) {
		return DefaultRelayTimeout
	}
	return time.Duration(c.WebhookTimeoutMs) * time.Millisecond
}

// ProbeTimeout is half of the relay override, capped at DefaultProbeTimeout
func (c *Config) ProbeTimeout() time.Duration {
	if !timeoutInRange(c.WebhookTimeoutMs) {
		return DefaultProbeTimeout
	}
	half := time.Duration(c.WebhookTimeoutMs/2) * time.Millisecond
	if half > DefaultProbeTimeout {
		return DefaultProbeTimeout
	}
	return half
}

// MonitorInterval returns zero when background monitoring is disabled
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.MonitorIntervalSecs) * time.Second
}

// AllowedDomains splits ALLOWED_WEBHOOK_DOMAINS on commas
func (c *Config) AllowedDomains() []string {
	return splitList(c.AllowedWebhookDomains)
}

// CORSOrigins splits CORS_ALLOWED_ORIGINS on commas
func (c *Config) CORSOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

func timeoutInRange(ms int) bool {
	return ms >= MinTimeoutMs && ms <= MaxTimeoutMs
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
