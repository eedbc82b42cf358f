// Package core declares the ports between the analysis service and its
// adapters. Service code depends on these interfaces, never on concrete
// adapters.
package core

import (
	"context"

	"github.com/skyportal/nmma-analysis/internal/domain/model"
	"github.com/skyportal/nmma-analysis/internal/observability/notify"
)

// Fitter runs one model fit. Implementations report every failure through
// FitOutcome and never return an error; all intermediate files are gone by
// the time Fit returns.
type Fitter interface {
	Fit(ctx context.Context, req model.FitRequest) model.FitOutcome
}

// Deliverer makes the single delivery attempt for a job's result. The error
// is informational: callers log and notify but never retry.
type Deliverer interface {
	Deliver(ctx context.Context, target model.CallbackTarget, result model.AnalysisResult) error
}

// JobTracker stores job records for status lookups. Get returns a not_found
// AppError for unknown IDs.
type JobTracker interface {
	Save(ctx context.Context, rec model.JobRecord) error
	Get(ctx context.Context, id string) (model.JobRecord, error)
}

// FailureNotifier alerts operators. It swallows its own errors.
type FailureNotifier interface {
	NotifyAnalysisFailure(ctx context.Context, payload notify.AnalysisFailurePayload)
}

// Pipeline turns an accepted request into the result to deliver.
type Pipeline interface {
	Run(ctx context.Context, req *model.AnalysisRequest) model.AnalysisResult
}
