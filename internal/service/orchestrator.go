package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/skyportal/nmma-analysis/internal/core"
	"github.com/skyportal/nmma-analysis/internal/domain/model"
	apperrors "github.com/skyportal/nmma-analysis/internal/errors"
	obserrors "github.com/skyportal/nmma-analysis/internal/observability/errors"
	"github.com/skyportal/nmma-analysis/internal/observability/metrics"
	"github.com/skyportal/nmma-analysis/internal/observability/notify"
	"github.com/skyportal/nmma-analysis/internal/observability/statsd"
)

// ErrShuttingDown is returned by Submit once Shutdown has begun.
var ErrShuttingDown = apperrors.Unavailable("analysis service is shutting down")

// trackerTimeout bounds each job tracker write.
const trackerTimeout = 2 * time.Second

// OrchestratorOptions groups dependencies for Orchestrator.
type OrchestratorOptions struct {
	Pipeline  core.Pipeline        // Required: normalize and fit
	Deliverer core.Deliverer       // Required: result delivery
	Tracker   core.JobTracker      // Optional: job status lookup
	Notifier  core.FailureNotifier // Optional: operator alerts
	Metrics   statsd.Sink          // Optional: statsd sink
	Logger    *slog.Logger         // Optional: structured logger

	// MaxConcurrency caps simultaneously running pipelines; 0 is unbounded.
	MaxConcurrency int
}

// JobOutcome is the terminal view of a job, available once its handle is done.
type JobOutcome struct {
	State       model.JobState
	Result      model.AnalysisResult
	DeliveryErr error
}

// JobHandle lets the submitter observe a job without blocking on it.
type JobHandle struct {
	ID string

	once    sync.Once
	done    chan struct{}
	outcome JobOutcome
}

// Done is closed after the job's single delivery attempt has finished.
func (h *JobHandle) Done() <-chan struct{} {
	return h.done
}

// Outcome blocks until the job is done and returns its terminal outcome.
func (h *JobHandle) Outcome() JobOutcome {
	<-h.done
	return h.outcome
}

// Orchestrator accepts analysis requests and runs each on its own goroutine.
// Every accepted job ends in exactly one delivery attempt, whether the
// pipeline returns or panics. Jobs run on a context detached from the
// submitter and are never canceled.
type Orchestrator struct {
	pipeline  core.Pipeline
	deliverer core.Deliverer
	tracker   core.JobTracker
	notifier  core.FailureNotifier
	metrics   statsd.Sink
	logger    *slog.Logger
	sem       *semaphore.Weighted

	mu       sync.Mutex
	closing  bool
	wg       sync.WaitGroup
	inFlight atomic.Int64

	newID func() string
	now   func() time.Time
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	if opts.Pipeline == nil {
		return nil, errors.New("Pipeline is required")
	}
	if opts.Deliverer == nil {
		return nil, errors.New("Deliverer is required")
	}
	if opts.MaxConcurrency < 0 {
		return nil, fmt.Errorf("MaxConcurrency must not be negative, got %d", opts.MaxConcurrency)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		pipeline:  opts.Pipeline,
		deliverer: opts.Deliverer,
		tracker:   opts.Tracker,
		notifier:  opts.Notifier,
		metrics:   opts.Metrics,
		logger:    logger.With("component", "orchestrator"),
		newID:     uuid.NewString,
		now:       time.Now,
	}
	if opts.MaxConcurrency > 0 {
		o.sem = semaphore.NewWeighted(int64(opts.MaxConcurrency))
	}
	return o, nil
}

// job is the orchestrator's private state for one submission.
type job struct {
	handle *JobHandle
	req    *model.AnalysisRequest
	record model.JobRecord
	start  time.Time
	logger *slog.Logger
}

// Submit accepts req and schedules it. It returns as soon as the job is
// recorded as accepted; it never waits for the pipeline.
func (o *Orchestrator) Submit(ctx context.Context, req *model.AnalysisRequest) (*JobHandle, error) {
	if req == nil {
		return nil, apperrors.Validation("analysis request is required")
	}

	o.mu.Lock()
	if o.closing {
		o.mu.Unlock()
		return nil, ErrShuttingDown
	}
	o.wg.Add(1)
	o.mu.Unlock()

	now := o.now()
	id := o.newID()
	j := &job{
		handle: &JobHandle{ID: id, done: make(chan struct{})},
		req:    req,
		record: model.NewJobRecord(id, req, now),
		start:  now,
		logger: o.logger.With("job_id", id, "object_id", req.ObjectID, "model", req.Model()),
	}

	runCtx := context.WithoutCancel(ctx)
	o.saveRecord(runCtx, j)
	metrics.EmitJobAccepted(o.metrics, req.Model())
	j.logger.InfoContext(ctx, "analysis job accepted", "callback_url", req.Callback.URL)

	go o.run(runCtx, j)
	return j.handle, nil
}

func (o *Orchestrator) run(ctx context.Context, j *job) {
	defer o.wg.Done()

	if o.sem != nil {
		// The context is never canceled, so Acquire only returns once a slot frees.
		if err := o.sem.Acquire(ctx, 1); err != nil {
			o.complete(ctx, j, model.NewBoundedFailureResult(msgProblemRunning+err.Error()), model.JobFailed)
			return
		}
		defer o.sem.Release(1)
	}

	o.gaugeInFlight(o.inFlight.Add(1))
	defer func() { o.gaugeInFlight(o.inFlight.Add(-1)) }()

	o.advance(ctx, j, model.JobRunning)
	j.logger.InfoContext(ctx, "analysis job running")

	result, state := o.execute(ctx, j)
	o.complete(ctx, j, result, state)
}

// execute runs the pipeline, converting a panic into a bounded failure result.
func (o *Orchestrator) execute(ctx context.Context, j *job) (result model.AnalysisResult, state model.JobState) {
	defer func() {
		if r := recover(); r != nil {
			j.logger.ErrorContext(ctx, "analysis pipeline panicked", "panic", r, "stack", string(debug.Stack()))
			msg := fmt.Sprintf("%s%v", msgProblemRunning, r)
			result = model.NewBoundedFailureResult(msg)
			state = model.JobFailed
			o.notify(ctx, j, notify.StagePanic, fmt.Errorf("panic: %v", r))
		}
	}()
	return o.pipeline.Run(ctx, j.req), model.JobDelivered
}

// complete hands the result to delivery exactly once and releases the handle.
func (o *Orchestrator) complete(ctx context.Context, j *job, result model.AnalysisResult, state model.JobState) {
	j.handle.once.Do(func() {
		defer close(j.handle.done)

		if state == model.JobDelivered && result.Status == model.ResultFailure {
			o.notify(ctx, j, notify.StageAnalysis, errors.New(result.Message))
		}

		deliveryErr := o.deliver(ctx, j, result)
		if deliveryErr != nil && !apperrors.IsTimeout(deliveryErr) {
			o.notify(ctx, j, notify.StageDelivery, deliveryErr)
		}

		j.record.Status = result.Status
		j.record.Message = result.Message
		o.advance(ctx, j, state)

		duration := o.now().Sub(j.start)
		metrics.EmitJobCompleted(o.metrics, metrics.JobMetric{
			Model:    j.req.Model(),
			State:    string(state),
			Status:   string(result.Status),
			Duration: duration,
		})
		j.logger.InfoContext(ctx, "analysis job finished",
			"state", state, "status", result.Status, "duration", duration)

		j.handle.outcome = JobOutcome{State: state, Result: result, DeliveryErr: deliveryErr}
	})
}

// deliver never lets a Deliverer panic escape into the job goroutine.
func (o *Orchestrator) deliver(ctx context.Context, j *job, result model.AnalysisResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			j.logger.ErrorContext(ctx, "result delivery panicked", "panic", r, "stack", string(debug.Stack()))
			err = apperrors.New(apperrors.ErrCodeDelivery, fmt.Sprintf("delivery panic: %v", r))
		}
	}()
	return o.deliverer.Deliver(ctx, j.req.Callback, result)
}

func (o *Orchestrator) advance(ctx context.Context, j *job, next model.JobState) {
	rec, err := j.record.Advance(next, o.now())
	if err != nil {
		j.logger.ErrorContext(ctx, "job state transition", "error", err)
		return
	}
	j.record = rec
	o.saveRecord(ctx, j)
}

// contain swallows a panic from an optional collaborator. It must be deferred
// directly so recover sees the panic.
func contain(ctx context.Context, logger *slog.Logger, what string) {
	if r := recover(); r != nil {
		logger.ErrorContext(ctx, what+" panicked", "panic", r, "stack", string(debug.Stack()))
	}
}

func (o *Orchestrator) saveRecord(ctx context.Context, j *job) {
	if o.tracker == nil {
		return
	}
	defer contain(ctx, j.logger, "job tracker save")
	ctx, cancel := context.WithTimeout(ctx, trackerTimeout)
	defer cancel()
	if err := o.tracker.Save(ctx, j.record); err != nil {
		j.logger.WarnContext(ctx, "job tracker save failed", "state", j.record.State, "error", err)
	}
}

func (o *Orchestrator) notify(ctx context.Context, j *job, stage string, err error) {
	if o.notifier == nil || err == nil {
		return
	}
	defer contain(ctx, j.logger, "failure notification")
	severity := notify.SeverityCritical
	if stage == notify.StageAnalysis {
		severity = notify.SeverityWarning
	}
	o.notifier.NotifyAnalysisFailure(ctx, notify.AnalysisFailurePayload{
		JobID:       j.handle.ID,
		ObjectID:    j.req.ObjectID,
		Model:       j.req.Model(),
		CallbackURL: j.req.Callback.URL,
		Stage:       stage,
		Error:       model.TruncateMessage(err.Error(), model.MaxFailureMessageLen),
		ErrorClass:  obserrors.Classify(err),
		Severity:    severity,
		OccurredAt:  o.now().UTC(),
	})
}

func (o *Orchestrator) gaugeInFlight(n int64) {
	if o.metrics != nil {
		o.metrics.Gauge(metrics.JobsInFlight, float64(n), nil)
	}
}

// InFlight reports how many pipelines are currently running.
func (o *Orchestrator) InFlight() int64 {
	return o.inFlight.Load()
}

// Shutdown stops accepting jobs and waits for accepted ones to finish their
// delivery attempt, or for ctx to expire. Jobs are not canceled either way.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closing = true
	o.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		o.logger.InfoContext(ctx, "all analysis jobs drained")
		return nil
	case <-ctx.Done():
		o.logger.WarnContext(ctx, "shutdown deadline reached with jobs still running", "in_flight", o.InFlight())
		return fmt.Errorf("drain analysis jobs: %w", ctx.Err())
	}
}
