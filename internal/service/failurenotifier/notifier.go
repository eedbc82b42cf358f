// Package failurenotifier fans analysis failure notifications out to the
// configured operator sinks.
package failurenotifier

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/skyportal/nmma-analysis/internal/observability/notify"
)

// SinkRegistration pairs a sink with a name for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the failure notifier service.
type Options struct {
	Logger *slog.Logger
	Sinks  []SinkRegistration

	// Stages limits notifications to these failure stages; empty means all.
	Stages []string

	// Timeout bounds one fan-out; zero means 10s.
	Timeout time.Duration
}

// Service dispatches failure events to all registered sinks.
type Service struct {
	logger  *slog.Logger
	sinks   []SinkRegistration
	stages  []string
	timeout time.Duration
}

// NewService constructs a failure notifier. Nil sinks are ignored.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "failure_notifier")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		if entry.Name == "" {
			entry.Name = "sink"
		}
		sinks = append(sinks, entry)
	}

	return &Service{logger: logger, sinks: sinks, stages: slices.Clone(opts.Stages), timeout: timeout}
}

// NotifyAnalysisFailure sends payload to every sink concurrently and waits for
// all of them. Sink errors are logged, never returned.
func (s *Service) NotifyAnalysisFailure(ctx context.Context, payload notify.AnalysisFailurePayload) {
	if s == nil || len(s.sinks) == 0 {
		return
	}
	if len(s.stages) > 0 && !slices.Contains(s.stages, payload.Stage) {
		s.logger.DebugContext(ctx, "failure notification filtered", "job_id", payload.JobID, "stage", payload.Stage)
		return
	}
	if payload.Severity == "" {
		payload.Severity = notify.SeverityCritical
	}
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, entry := range s.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := entry.Sink.SendAnalysisFailure(ctx, payload); err != nil {
				s.logger.ErrorContext(ctx, "failure notifier delivery error",
					"sink", entry.Name,
					"job_id", payload.JobID,
					"stage", payload.Stage,
					"error", err,
				)
			}
		}()
	}
	wg.Wait()
}

// Enabled reports whether the notifier has any active sinks.
func (s *Service) Enabled() bool {
	return s != nil && len(s.sinks) > 0
}
