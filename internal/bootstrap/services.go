package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skyportal/nmma-analysis/config"
	"github.com/skyportal/nmma-analysis/internal/adapters/nmmafit"
	redisadapter "github.com/skyportal/nmma-analysis/internal/adapters/redis"
	"github.com/skyportal/nmma-analysis/internal/adapters/webhook"
	"github.com/skyportal/nmma-analysis/internal/core"
	"github.com/skyportal/nmma-analysis/internal/domain/model"
	"github.com/skyportal/nmma-analysis/internal/observability/notify/pagerduty"
	"github.com/skyportal/nmma-analysis/internal/observability/notify/slack"
	"github.com/skyportal/nmma-analysis/internal/observability/statsd"
	"github.com/skyportal/nmma-analysis/internal/service"
	"github.com/skyportal/nmma-analysis/internal/service/failurenotifier"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Orchestrator  *service.Orchestrator
	Tracker       core.JobTracker // nil when job tracking is disabled
	Catalog       *model.Catalog
	Defaults      model.AnalysisParameters
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink     *statsd.Client
	MetricsConfig   config.ObservabilityMetricsConfig
	FailureNotifier *failurenotifier.Service
	NotifierConfig  config.ObservabilityNotificationsConfig
}

// Sink returns the metrics sink, or nil when metrics are off.
//
//nolint:ireturn // callers take the statsd.Sink port.
func (o ObservabilityContainer) Sink() statsd.Sink {
	if o.MetricsSink == nil {
		return nil
	}
	return o.MetricsSink
}

// Close releases the metrics socket.
func (o ObservabilityContainer) Close() error {
	return o.MetricsSink.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config *config.AppConfig
	// RedisClient backs job tracking; nil disables it.
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires the analysis pipeline, delivery and orchestration.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps missing AppConfig")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	catalog, err := LoadCatalog(cfg.NMMA.ModelCatalog)
	if err != nil {
		return ServiceContainer{}, err
	}

	observability := buildObservability(logger, cfg.Observability)
	sink := observability.Sink()

	fitter, err := nmmafit.NewFitter(nmmafit.Config{
		FitCommand:        cfg.NMMA.FitCommand,
		EvaluateCommand:   cfg.NMMA.EvaluateCommand,
		PlotCommand:       cfg.NMMA.PlotCommand,
		PriorDirectory:    cfg.NMMA.PriorDirectory,
		SVDModelDirectory: cfg.NMMA.SVDModelDirectory,
		WorkDir:           cfg.NMMA.WorkDir,
		SummaryExpression: cfg.NMMA.SummaryExpression,
		Catalog:           catalog,
		Logger:            logger,
		Metrics:           sink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build fitter: %w", err)
	}

	pipeline, err := service.NewAnalysisPipeline(service.AnalysisPipelineOptions{
		Fitter:    fitter,
		Normalize: cfg.Normalize.Options(),
		Logger:    logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build pipeline: %w", err)
	}

	deliverer := webhook.NewDeliverer(webhook.Options{
		Timeout: cfg.HTTP.CallbackTimeout,
		Logger:  logger,
		Metrics: sink,
	})

	var tracker core.JobTracker
	if cfg.Tracking.Enabled && deps.RedisClient != nil {
		tracker = redisadapter.NewJobTrackerWithPrefix(deps.RedisClient, cfg.Tracking.KeyPrefix, cfg.Tracking.TTL)
	}

	orchestrator, err := service.NewOrchestrator(service.OrchestratorOptions{
		Pipeline:       pipeline,
		Deliverer:      deliverer,
		Tracker:        tracker,
		Notifier:       observability.FailureNotifier,
		Metrics:        sink,
		Logger:         logger,
		MaxConcurrency: cfg.Worker.MaxConcurrency,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build orchestrator: %w", err)
	}

	return ServiceContainer{
		Orchestrator:  orchestrator,
		Tracker:       tracker,
		Catalog:       catalog,
		Defaults:      cfg.Defaults.Parameters(),
		Observability: observability,
	}, nil
}

// LoadCatalog reads the model catalog file, or returns the stock catalog when path is empty.
func LoadCatalog(path string) (*model.Catalog, error) {
	if path == "" {
		return model.DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model catalog: %w", err)
	}
	catalog, err := model.ParseCatalogYAML(data)
	if err != nil {
		return nil, fmt.Errorf("model catalog %s: %w", path, err)
	}
	return catalog, nil
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled:    true,
			Address:    cfg.Metrics.StatsdAddress,
			Prefix:     cfg.Metrics.Prefix,
			Logger:     obsLogger,
			GlobalTags: cfg.Metrics.GlobalTags(),
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:     metricsSink,
		MetricsConfig:   cfg.Metrics,
		FailureNotifier: buildFailureNotifier(obsLogger, cfg.Notifications),
		NotifierConfig:  cfg.Notifications,
	}
}

func buildFailureNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *failurenotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{
			Logger: baseLogger.With("component", "failure_notifier"),
		})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:      cfg.Slack.WebhookURL,
			Channel:         cfg.Slack.Channel,
			Username:        cfg.Slack.Username,
			Timeout:         cfg.Timeout,
			RetryLimit:      cfg.RetryLimit,
			ObjectURLPrefix: cfg.Slack.ObjectURLPrefix,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "slack",
				Sink: client,
			})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "pagerduty",
				Sink: client,
			})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger:  baseLogger.With("component", "failure_notifier"),
		Sinks:   sinks,
		Stages:  cfg.Stages,
		Timeout: cfg.Timeout * time.Duration(cfg.RetryLimit+1),
	})
}
