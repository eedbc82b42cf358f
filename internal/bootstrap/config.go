package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	slogmulti "github.com/samber/slog-multi"

	"github.com/skyportal/nmma-analysis/config"
)

// InitLogger initializes the structured logger used until configuration is loaded.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// SetupLogger builds the configured logger and installs it as the default.
// When cfg.LogFile is set, records are written to stdout and the file.
// The returned cleanup closes the file.
func SetupLogger(cfg *config.AppConfig) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFile == "" {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, opts))
		slog.SetDefault(logger)
		return logger, func() error { return nil }, nil
	}

	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := NewLoggerWithWriters(os.Stdout, file, cfg.SlogLevel())
	slog.SetDefault(logger)
	return logger, file.Close, nil
}

// NewLoggerWithWriters fans JSON records out to both writers.
func NewLoggerWithWriters(stdout, file io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	return slog.New(slogmulti.Fanout(
		slog.NewJSONHandler(stdout, opts),
		slog.NewJSONHandler(file, opts),
	))
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}
