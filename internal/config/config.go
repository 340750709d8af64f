// Package config provides configuration loading from environment variables.
// The process environment is read once, at startup; components receive the
// resulting values through their constructors.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrAPIKeyRequired is returned when MAGIC_HOUR_API_KEY is not set.
	ErrAPIKeyRequired = errors.New("config: MAGIC_HOUR_API_KEY is required")
	// ErrWebhookSecretRequired is returned when WEBHOOK_SECRET is not set.
	ErrWebhookSecretRequired = errors.New("config: WEBHOOK_SECRET is required")
	// ErrInvalidPollInterval is returned when MAGIC_HOUR_POLL_INTERVAL is not positive.
	ErrInvalidPollInterval = errors.New("config: MAGIC_HOUR_POLL_INTERVAL must be positive")
)

// envFiles are loaded, when present, before the environment is processed.
// Variables already set in the process environment win.
var envFiles = []string{".env", ".env.local"}

// Config holds all configuration for the client, the CLI and the webhook receiver.
type Config struct {
	// API settings
	APIKey         string `env:"MAGIC_HOUR_API_KEY" json:"-"` // Masked in JSON
	BaseURL        string `env:"MAGIC_HOUR_BASE_URL, default=https://api.magichour.ai" json:"base_url"`
	HTTPTimeoutSec int    `env:"MAGIC_HOUR_HTTP_TIMEOUT_SEC, default=60" json:"http_timeout_sec"`

	// Orchestration settings
	PollIntervalSec float64 `env:"MAGIC_HOUR_POLL_INTERVAL, default=0.5" json:"poll_interval_sec"`
	DownloadDir     string  `env:"DOWNLOAD_DIR" json:"download_dir,omitempty"`

	// Webhook settings
	WebhookSecret       string `env:"WEBHOOK_SECRET" json:"-"` // Masked in JSON
	WebhookToleranceSec int    `env:"WEBHOOK_TOLERANCE_SEC, default=300" json:"webhook_tolerance_sec"`

	// Receiver settings
	Port          int    `env:"PORT, default=8080" json:"port"`
	RedisURL      string `env:"REDIS_URL" json:"-"` // May embed a password
	EventTTLHours int    `env:"EVENT_TTL_HOURS, default=168" json:"event_ttl_hours"`

	// Optional S3 mirror settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// Load reads the client configuration. MAGIC_HOUR_API_KEY is required.
func Load() (*Config, error) {
	cfg, err := process()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadServer reads the webhook receiver configuration. WEBHOOK_SECRET is
// required; the API key is not.
func LoadServer() (*Config, error) {
	cfg, err := process()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateServer(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func process() (*Config, error) {
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings needed to call the API.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrAPIKeyRequired
	}
	if c.PollIntervalSec <= 0 {
		return ErrInvalidPollInterval
	}
	return nil
}

// ValidateServer checks the settings needed to receive webhooks.
func (c *Config) ValidateServer() error {
	if c.WebhookSecret == "" {
		return ErrWebhookSecretRequired
	}
	return nil
}

// PollInterval returns the fixed sleep between status fetches.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec * float64(time.Second))
}

// HTTPTimeout returns the per-request timeout of the API client.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// WebhookTolerance returns the maximum accepted webhook age, or nil when the
// age check is disabled (WEBHOOK_TOLERANCE_SEC <= 0).
func (c *Config) WebhookTolerance() *time.Duration {
	if c.WebhookToleranceSec <= 0 {
		return nil
	}
	d := time.Duration(c.WebhookToleranceSec) * time.Second
	return &d
}

// EventTTL returns how long the receiver keeps webhook records.
func (c *Config) EventTTL() time.Duration {
	if c.EventTTLHours <= 0 {
		return 0
	}
	return time.Duration(c.EventTTLHours) * time.Hour
}

// S3Enabled returns true if S3 mirror configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{BaseURL: %s, PollIntervalSec: %g, DownloadDir: %s, WebhookToleranceSec: %d, Port: %d, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.BaseURL,
		c.PollIntervalSec,
		c.DownloadDir,
		c.WebhookToleranceSec,
		c.Port,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
