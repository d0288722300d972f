// Package config provides configuration loading from environment variables.
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

// Attribute store backends.
const (
	StoreLocal  = "local"
	StoreMemory = "memory"
	StoreBadger = "badger"
	StoreS3     = "s3"
)

// Static errors for configuration validation.
var (
	// ErrABSServerURLRequired is returned when ABS_SERVER_URL is not set.
	ErrABSServerURLRequired = errors.New("config: ABS_SERVER_URL is required")
	// ErrABSAPIKeyRequired is returned when ABS_API_KEY is not set.
	ErrABSAPIKeyRequired = errors.New("config: ABS_API_KEY is required")
	// ErrInvalidAttributeStore is returned when ATTRIBUTE_STORE names an unknown backend.
	ErrInvalidAttributeStore = errors.New("config: ATTRIBUTE_STORE must be one of local, memory, badger, s3")
	// ErrS3BucketRequired is returned when the s3 store is selected without S3_BUCKET.
	ErrS3BucketRequired = errors.New("config: S3_BUCKET is required for the s3 attribute store")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Audiobook server settings
	ABSServerURL   string        `env:"ABS_SERVER_URL, required" json:"abs_server_url"`
	ABSAPIKey      string        `env:"ABS_API_KEY, required" json:"-"` // Masked in JSON
	ABSUserAgent   string        `env:"ABS_USER_AGENT, default=AlexaSkill" json:"abs_user_agent"`
	ABSHTTPTimeout time.Duration `env:"ABS_HTTP_TIMEOUT, default=0s" json:"abs_http_timeout"`

	// Skill settings
	SkillApplicationID string `env:"SKILL_APPLICATION_ID" json:"skill_application_id,omitempty"`
	BackgroundImageURL string `env:"BACKGROUND_IMAGE_URL" json:"background_image_url,omitempty"`

	// Attribute store settings
	AttributeStore string `env:"ATTRIBUTE_STORE, default=local" json:"attribute_store"`
	DataDir        string `env:"DATA_DIR, default=/tmp/audiobook-skill" json:"data_dir"`

	// S3 settings, used by the s3 attribute store
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	S3Prefix           string `env:"S3_PREFIX, default=attributes/" json:"s3_prefix"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Inbound throttling per device; RPS 0 disables it
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS, default=5" json:"rate_limit_rps"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST, default=10" json:"rate_limit_burst"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// RateLimitEnabled reports whether inbound requests are throttled.
func (c *Config) RateLimitEnabled() bool {
	return c.RateLimitRPS > 0
}

// Load reads configuration from environment variables using go-envconfig.
// A .env file in the working directory is loaded first when present; it
// never overrides variables that are already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "ABS_SERVER_URL") {
			return nil, ErrABSServerURLRequired
		}
		if strings.Contains(err.Error(), "ABS_API_KEY") {
			return nil, ErrABSAPIKeyRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and consistent.
func (c *Config) Validate() error {
	if c.ABSServerURL == "" {
		return ErrABSServerURLRequired
	}
	if c.ABSAPIKey == "" {
		return ErrABSAPIKeyRequired
	}
	switch strings.ToLower(c.AttributeStore) {
	case StoreLocal, StoreMemory, StoreBadger:
	case StoreS3:
		if c.S3Bucket == "" {
			return ErrS3BucketRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAttributeStore, c.AttributeStore)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, ABSServerURL: %s, ABSUserAgent: %s, ABSHTTPTimeout: %s, SkillApplicationID: %s, AttributeStore: %s, DataDir: %s, S3Bucket: %s, S3Region: %s, S3Endpoint: %s, S3Prefix: %s, RateLimitRPS: %g, RateLimitBurst: %d, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.ABSServerURL,
		c.ABSUserAgent,
		c.ABSHTTPTimeout,
		c.SkillApplicationID,
		c.AttributeStore,
		c.DataDir,
		c.S3Bucket,
		c.S3Region,
		c.S3Endpoint,
		c.S3Prefix,
		c.RateLimitRPS,
		c.RateLimitBurst,
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
