// Package httpx provides the HTTP surface of the NMMA analysis service.
package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/skyportal/nmma-analysis/internal/core"
	"github.com/skyportal/nmma-analysis/internal/domain/model"
	apperrors "github.com/skyportal/nmma-analysis/internal/errors"
	"github.com/skyportal/nmma-analysis/internal/observability/metrics"
	"github.com/skyportal/nmma-analysis/internal/observability/statsd"
	"github.com/skyportal/nmma-analysis/internal/service"
)

// DefaultMaxBodyBytes bounds submission bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 32 << 20

// AnalysisSubmitter accepts validated requests for asynchronous processing.
type AnalysisSubmitter interface {
	Submit(ctx context.Context, req *model.AnalysisRequest) (*service.JobHandle, error)
}

// AnalysisHandlers provides HTTP handlers for analysis submissions and job lookups.
type AnalysisHandlers struct {
	Submitter    AnalysisSubmitter
	Tracker      core.JobTracker
	Catalog      *model.Catalog
	Defaults     model.AnalysisParameters
	MaxBodyBytes int64
	Metrics      statsd.Sink
	Logger       *slog.Logger
}

// Submit validates a submission and hands it to the orchestrator. The reply
// never waits for the fit.
func (h *AnalysisHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	body, ok := ReadBody(w, r, h.maxBodyBytes())
	if !ok {
		metrics.EmitJobRejected(h.Metrics, "body")
		return
	}

	req, err := model.ParseAnalysisRequest(body, h.Catalog, h.Defaults)
	if err != nil {
		h.logger(r).WarnContext(r.Context(), "analysis submission rejected",
			"error", err, "field", apperrors.GetField(err))
		metrics.EmitJobRejected(h.Metrics, string(apperrors.ErrCodeValidation))
		WriteAppError(w, err)
		return
	}

	handle, err := h.Submitter.Submit(r.Context(), req)
	if err != nil {
		h.logger(r).ErrorContext(r.Context(), "analysis submission not accepted", "error", err)
		metrics.EmitJobRejected(h.Metrics, string(apperrors.GetCode(err)))
		WriteAppError(w, err)
		return
	}

	h.logger(r).InfoContext(r.Context(), "analysis submission accepted", "job_id", handle.ID)
	WriteJSON(w, http.StatusAccepted, model.NewPendingAck(handle.ID))
}

// GetJob returns the tracked record for a job ID.
func (h *AnalysisHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if h.Tracker == nil {
		WriteAppError(w, apperrors.NotFoundf("job %s not found", id))
		return
	}

	rec, err := h.Tracker.Get(r.Context(), id)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			h.logger(r).ErrorContext(r.Context(), "job lookup failed", "job_id", id, "error", err)
		}
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, rec)
}

func (h *AnalysisHandlers) maxBodyBytes() int64 {
	if h.MaxBodyBytes > 0 {
		return h.MaxBodyBytes
	}
	return DefaultMaxBodyBytes
}

func (h *AnalysisHandlers) logger(r *http.Request) *slog.Logger {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if id := RequestIDFrom(r.Context()); id != "" {
		logger = logger.With("request_id", id)
	}
	return logger
}
