package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skyportal/nmma-analysis/config"
	"github.com/skyportal/nmma-analysis/internal/service"
)

// RunConfig groups what RunWithShutdown needs.
type RunConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunWithShutdown serves HTTP until ctx is canceled, SIGINT or SIGTERM
// arrives, or the server fails. It then stops accepting requests and waits
// up to WORKER_DRAIN_TIMEOUT for accepted jobs to deliver their results.
func RunWithShutdown(ctx context.Context, cfg *RunConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("run config missing AppConfig")
	}
	if cfg.Services.Orchestrator == nil {
		return errors.New("run config missing orchestrator")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := NewHTTPServer(&HTTPServerConfig{Config: cfg.Config, Services: cfg.Services, Logger: logger})
	ln, err := Listen(ctx, server.Addr, cfg.Config.HTTP.MaxConnections)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return Serve(server, ln, logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down services...")
		stopCtx := context.WithoutCancel(ctx)
		httpErr := ShutdownHTTPServer(ShutdownConfig{Context: stopCtx, Server: server, Logger: logger})
		drainErr := DrainJobs(stopCtx, cfg.Services.Orchestrator, cfg.Config.Worker.DrainTimeout, logger)
		return errors.Join(httpErr, drainErr)
	})

	err = g.Wait()
	if cerr := cfg.Services.Observability.Close(); cerr != nil {
		logger.Warn("close metrics sink", "error", cerr)
	}
	return err
}

// DrainJobs stops the orchestrator from accepting work and waits up to
// timeout for in-flight jobs. A zero timeout does not wait.
func DrainJobs(ctx context.Context, orch *service.Orchestrator, timeout time.Duration, logger *slog.Logger) error {
	if orch == nil {
		return nil
	}
	drainCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Info("draining analysis jobs", "in_flight", orch.InFlight(), "timeout", timeout)
	return orch.Shutdown(drainCtx)
}
