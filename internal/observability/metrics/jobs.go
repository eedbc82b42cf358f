// Package metrics holds the metric names and tag conventions of the analysis
// service.
package metrics

import (
	"maps"
	"time"

	obserrors "github.com/skyportal/nmma-analysis/internal/observability/errors"
	"github.com/skyportal/nmma-analysis/internal/observability/statsd"
)

// Metric names.
const (
	JobsAccepted     = "analysis.jobs.accepted"
	JobsRejected     = "analysis.jobs.rejected"
	JobsCompleted    = "analysis.jobs.completed"
	JobDuration      = "analysis.job.duration"
	JobsInFlight     = "analysis.jobs.in_flight"
	FitDuration      = "analysis.fit.duration"
	DeliveryAttempts = "analysis.delivery.attempts"
	DeliveryDuration = "analysis.delivery.duration"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// EmitJobAccepted records a submission that passed validation.
func EmitJobAccepted(sink statsd.Sink, model string) {
	if sink == nil {
		return
	}
	sink.Count(JobsAccepted, 1, map[string]string{"model": model})
}

// EmitJobRejected records a submission refused at the HTTP boundary.
func EmitJobRejected(sink statsd.Sink, reason string) {
	if sink == nil {
		return
	}
	sink.Count(JobsRejected, 1, map[string]string{"reason": reason})
}

// JobMetric describes one finished analysis job.
type JobMetric struct {
	Model    string
	State    string
	Status   string
	Duration time.Duration
}

// EmitJobCompleted records a job reaching a terminal state.
func EmitJobCompleted(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"model":  in.Model,
		"state":  in.State,
		"status": in.Status,
	}
	sink.Count(JobsCompleted, 1, tags)
	if in.Duration > 0 {
		sink.Timing(JobDuration, in.Duration, CloneTags(tags))
	}
}

// EmitFit records one invocation of the fitting routine.
func EmitFit(sink statsd.Sink, model string, success bool, d time.Duration) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	if !success {
		result = ResultError
	}
	sink.Timing(FitDuration, d, map[string]string{"model": model, "result": result})
}

// DeliveryMetric describes one webhook attempt.
type DeliveryMetric struct {
	Result     string
	StatusCode int
	Duration   time.Duration
	Err        error
}

// EmitDelivery records one webhook attempt.
func EmitDelivery(sink statsd.Sink, in DeliveryMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{"result": in.Result}
	if in.StatusCode > 0 {
		tags["status_class"] = statusClass(in.StatusCode)
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count(DeliveryAttempts, 1, tags)
	if in.Duration > 0 {
		sink.Timing(DeliveryDuration, in.Duration, CloneTags(tags))
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// CloneTags returns a shallow copy, or nil for an empty map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	return maps.Clone(src)
}
