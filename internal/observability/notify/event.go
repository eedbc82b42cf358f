// Package notify defines the operator-facing failure notification contract and
// the HTTP plumbing shared by its sinks.
package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Stages at which an analysis job can fail.
const (
	StageAnalysis = "analysis"
	StageDelivery = "delivery"
	StagePanic    = "panic"
)

// AnalysisFailurePayload captures what operators see when an analysis job
// fails to produce or deliver a result.
type AnalysisFailurePayload struct {
	JobID       string
	ObjectID    string
	Model       string
	CallbackURL string
	Stage       string
	Error       string
	ErrorClass  string
	Severity    string
	OccurredAt  time.Time
	Metadata    map[string]string
}

// Sink describes a destination capable of consuming failure notifications.
type Sink interface {
	SendAnalysisFailure(ctx context.Context, payload AnalysisFailurePayload) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, payload AnalysisFailurePayload) error

// SendAnalysisFailure implements the Sink interface.
func (f SinkFunc) SendAnalysisFailure(ctx context.Context, payload AnalysisFailurePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
