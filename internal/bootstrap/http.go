package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"github.com/skyportal/nmma-analysis/config"
	httpx "github.com/skyportal/nmma-analysis/internal/http"
)

const (
	httpIdleTimeout     = 120 * time.Second
	httpShutdownTimeout = 10 * time.Second
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// NewHTTPServer builds the HTTP server with the router and middleware.
func NewHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
		appCfg.Sanitize()
	}

	services := httpx.RouterServices{
		Orchestrator: cfg.Services.Orchestrator,
		Tracker:      cfg.Services.Tracker,
		Catalog:      cfg.Services.Catalog,
		Defaults:     cfg.Services.Defaults,
		MaxBodyBytes: appCfg.HTTP.MaxBodyBytes,
		Metrics:      cfg.Services.Observability.Sink(),
		Logger:       logger,
	}

	return &http.Server{
		Addr:         appCfg.HTTP.Addr(),
		Handler:      buildHTTPHandler(logger, services),
		ReadTimeout:  appCfg.HTTP.ReadTimeout,
		WriteTimeout: appCfg.HTTP.WriteTimeout,
		IdleTimeout:  httpIdleTimeout,
	}
}

func buildHTTPHandler(logger *slog.Logger, services httpx.RouterServices) http.Handler {
	// Order: RequestID -> Recover -> Logging -> Router
	h := httpx.NewRouter(services)
	h = httpx.Logging(logger)(h)
	h = httpx.Recover(logger)(h)
	h = httpx.RequestID(h)
	return h
}

// Listen binds the server address, capping accepted connections when
// maxConnections is positive.
func Listen(ctx context.Context, addr string, maxConnections int) (net.Listener, error) {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	if maxConnections > 0 {
		ln = netutil.LimitListener(ln, maxConnections)
	}
	return ln, nil
}

// Serve runs the server on ln until it is shut down. A clean shutdown returns nil.
func Serve(server *http.Server, ln net.Listener, logger *slog.Logger) error {
	logger.Info("starting HTTP server", "addr", ln.Addr().String())
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(cfg.Context, httpShutdownTimeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
