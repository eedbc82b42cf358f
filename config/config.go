package config

import (
	"log/slog"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - http.go: HTTP server and callback delivery
//   - services.go: worker pool, normalization, fitting tool and analysis defaults
//   - database.go: Redis-backed job tracking
//   - observability.go: metrics and failure notifications
type AppConfig struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// LogFile optionally mirrors JSON logs to a file.
	LogFile string `env:"LOG_FILE"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Job orchestration configuration
	Worker WorkerConfig

	// Photometry normalization configuration
	Normalize NormalizeConfig

	// External fitting tool configuration
	NMMA NMMAConfig

	// Analysis parameter defaults merged under each submission
	Defaults AnalysisDefaultsConfig `envPrefix:"NMMA_DEFAULT_"`

	// Optional job tracking in Redis
	Tracking JobTrackingConfig
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFile = strings.TrimSpace(c.LogFile)

	c.HTTP.Sanitize()
	c.Worker.Sanitize()
	c.Normalize.Sanitize()
	c.NMMA.Sanitize()
	c.Defaults.Sanitize()
	c.Tracking.Sanitize()
	c.Redis.Sanitize()
	c.Observability.Sanitize()
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
