package failurenotifier

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/skyportal/nmma-analysis/internal/observability/notify"
)

func TestServiceNotifyAnalysisFailure(t *testing.T) {
	var mu sync.Mutex
	var received []notify.AnalysisFailurePayload
	capture := notify.SinkFunc(func(_ context.Context, payload notify.AnalysisFailurePayload) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, payload)
		return nil
	})

	svc := NewService(Options{
		Sinks: []SinkRegistration{
			{Name: "a", Sink: capture},
			{Name: "b", Sink: capture},
			{Name: "nil"},
		},
	})

	svc.NotifyAnalysisFailure(context.Background(), notify.AnalysisFailurePayload{
		JobID: "123",
		Stage: notify.StageDelivery,
	})

	if len(received) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(received))
	}
	if received[0].Severity != notify.SeverityCritical {
		t.Fatalf("expected severity to default to critical, got %s", received[0].Severity)
	}
	if received[0].OccurredAt.IsZero() {
		t.Fatal("expected OccurredAt to be stamped")
	}
}

func TestServiceDisabled(t *testing.T) {
	svc := NewService(Options{})
	if svc.Enabled() {
		t.Fatal("expected Enabled() to be false when no sinks registered")
	}
	svc.NotifyAnalysisFailure(context.Background(), notify.AnalysisFailurePayload{})

	var nilSvc *Service
	if nilSvc.Enabled() {
		t.Fatal("nil service should be disabled")
	}
}

func TestServiceSurvivesSinkErrorsAndCanceledParent(t *testing.T) {
	var called bool
	svc := NewService(Options{
		Sinks: []SinkRegistration{{
			Name: "fail",
			Sink: notify.SinkFunc(func(ctx context.Context, _ notify.AnalysisFailurePayload) error {
				called = ctx.Err() == nil
				return errors.New("boom")
			}),
		}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.NotifyAnalysisFailure(ctx, notify.AnalysisFailurePayload{JobID: "123"})

	if !called {
		t.Fatal("expected sink to run with a live context")
	}
}

func TestServiceStageFilter(t *testing.T) {
	var mu sync.Mutex
	var stages []string
	capture := notify.SinkFunc(func(_ context.Context, payload notify.AnalysisFailurePayload) error {
		mu.Lock()
		defer mu.Unlock()
		stages = append(stages, payload.Stage)
		return nil
	})

	svc := NewService(Options{
		Sinks:  []SinkRegistration{{Name: "capture", Sink: capture}},
		Stages: []string{notify.StageDelivery, notify.StagePanic},
	})
	for _, stage := range []string{notify.StageAnalysis, notify.StageDelivery, notify.StagePanic} {
		svc.NotifyAnalysisFailure(context.Background(), notify.AnalysisFailurePayload{JobID: "j", Stage: stage})
	}

	if len(stages) != 2 || stages[0] != notify.StageDelivery || stages[1] != notify.StagePanic {
		t.Fatalf("expected only delivery and panic notifications, got %v", stages)
	}
}
