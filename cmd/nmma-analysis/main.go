package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/skyportal/nmma-analysis/config"
	"github.com/skyportal/nmma-analysis/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) (err error) {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger, closeLog, err := bootstrap.SetupLogger(&cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeLog(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close log file: %w", cerr))
		}
	}()

	logStartupInfo(ctx, logger, &cfg)

	redisClient, err := initInfrastructure(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &cfg,
		RedisClient: redisClient,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	return bootstrap.RunWithShutdown(ctx, &bootstrap.RunConfig{
		Config:   &cfg,
		Services: services,
		Logger:   logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting nmma analysis service",
		"addr", cfg.HTTP.Addr(),
		"fit_command", cfg.NMMA.FitCommand,
		"max_concurrency", cfg.Worker.MaxConcurrency,
		"mjd_policy", cfg.Normalize.MJDPolicy,
		"job_tracking", cfg.Tracking.Enabled)
}

// initInfrastructure connects Redis when job tracking is enabled.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func initInfrastructure(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	if !cfg.Tracking.Enabled {
		return nil, nil
	}
	client, err := bootstrap.ConnectRedis(ctx, bootstrap.RedisConnectConfig{
		RedisConfig: cfg.Redis,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}
