package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/skyportal/nmma-analysis/internal/domain/model"
	apperrors "github.com/skyportal/nmma-analysis/internal/errors"
	"github.com/skyportal/nmma-analysis/internal/mocks"
	"github.com/skyportal/nmma-analysis/internal/observability/notify"
	"github.com/skyportal/nmma-analysis/internal/testutil"
)

func waitDone(t *testing.T, h *JobHandle) JobOutcome {
	t.Helper()
	select {
	case <-h.Done():
		return h.Outcome()
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
		return JobOutcome{}
	}
}

func newTestOrchestrator(t *testing.T, opts OrchestratorOptions) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(opts)
	require.NoError(t, err)
	o.newID = func() string { return "job-1" }
	o.now = testutil.FixedTimeFunc(testutil.TestTime())
	return o
}

func TestOrchestrator_DeliversPipelineResultOnce(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctrl := gomock.NewController(t)
	pipeline := mocks.NewMockPipeline(ctrl)
	deliverer := mocks.NewMockDeliverer(ctrl)
	tracker := mocks.NewMockJobTracker(ctrl)

	req := testutil.NewSubmission().Request(t)
	want := model.AnalysisResult{Status: model.ResultSuccess, Message: "fitted"}

	gomock.InOrder(
		tracker.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, rec model.JobRecord) error {
			assert.Equal(t, model.JobAccepted, rec.State)
			return nil
		}),
		tracker.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, rec model.JobRecord) error {
			assert.Equal(t, model.JobRunning, rec.State)
			return nil
		}),
		pipeline.EXPECT().Run(gomock.Any(), req).Return(want),
		deliverer.EXPECT().Deliver(gomock.Any(), req.Callback, want).Return(nil).Times(1),
		tracker.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, rec model.JobRecord) error {
			assert.Equal(t, model.JobDelivered, rec.State)
			assert.Equal(t, model.ResultSuccess, rec.Status)
			assert.Equal(t, "fitted", rec.Message)
			return nil
		}),
	)

	o := newTestOrchestrator(t, OrchestratorOptions{Pipeline: pipeline, Deliverer: deliverer, Tracker: tracker})
	handle, err := o.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "job-1", handle.ID)

	out := waitDone(t, handle)
	assert.Equal(t, model.JobDelivered, out.State)
	assert.Equal(t, want, out.Result)
	assert.NoError(t, out.DeliveryErr)
	require.NoError(t, o.Shutdown(context.Background()))
}

func TestOrchestrator_SubmitDoesNotWaitForPipeline(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctrl := gomock.NewController(t)
	pipeline := mocks.NewMockPipeline(ctrl)
	deliverer := mocks.NewMockDeliverer(ctrl)

	release := make(chan struct{})
	pipeline.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *model.AnalysisRequest) model.AnalysisResult {
			<-release
			return model.NewFailureResult("Model fitting failed.")
		})
	deliverer.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	o := newTestOrchestrator(t, OrchestratorOptions{Pipeline: pipeline, Deliverer: deliverer})
	handle, err := o.Submit(context.Background(), testutil.NewSubmission().Request(t))
	require.NoError(t, err)

	select {
	case <-handle.Done():
		t.Fatal("job finished before the pipeline returned")
	default:
	}
	close(release)
	out := waitDone(t, handle)
	assert.Equal(t, model.JobDelivered, out.State)
	assert.Equal(t, model.ResultFailure, out.Result.Status)
	require.NoError(t, o.Shutdown(context.Background()))
}

func TestOrchestrator_PanicBecomesBoundedFailure(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctrl := gomock.NewController(t)
	pipeline := mocks.NewMockPipeline(ctrl)
	deliverer := mocks.NewMockDeliverer(ctrl)
	notifier := mocks.NewMockFailureNotifier(ctrl)

	pipeline.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *model.AnalysisRequest) model.AnalysisResult {
			panic(strings.Repeat("x", 5000))
		})

	var delivered model.AnalysisResult
	deliverer.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ model.CallbackTarget, r model.AnalysisResult) error {
			delivered = r
			return nil
		}).Times(1)
	notifier.EXPECT().NotifyAnalysisFailure(gomock.Any(), gomock.Any()).Do(
		func(_ context.Context, p notify.AnalysisFailurePayload) {
			assert.Equal(t, notify.StagePanic, p.Stage)
			assert.Equal(t, "job-1", p.JobID)
			assert.Equal(t, "Me2017", p.Model)
			assert.LessOrEqual(t, len(p.Error), model.MaxFailureMessageLen)
		}).Times(1)

	o := newTestOrchestrator(t, OrchestratorOptions{Pipeline: pipeline, Deliverer: deliverer, Notifier: notifier})
	handle, err := o.Submit(context.Background(), testutil.NewSubmission().Request(t))
	require.NoError(t, err)

	out := waitDone(t, handle)
	assert.Equal(t, model.JobFailed, out.State)
	assert.Equal(t, model.ResultFailure, delivered.Status)
	assert.Len(t, delivered.Message, model.MaxFailureMessageLen)
	assert.True(t, strings.HasPrefix(delivered.Message, "Problem running the model: xxx"))
	require.NoError(t, o.Shutdown(context.Background()))
}

func TestOrchestrator_DeliveryErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantNotify bool
	}{
		{name: "rejected by callback", err: apperrors.New(apperrors.ErrCodeDelivery, "status 500"), wantNotify: true},
		{name: "timeout is only logged", err: apperrors.New(apperrors.ErrCodeTimeout, "timed out"), wantNotify: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer goleak.VerifyNone(t)
			ctrl := gomock.NewController(t)
			pipeline := mocks.NewMockPipeline(ctrl)
			deliverer := mocks.NewMockDeliverer(ctrl)
			notifier := mocks.NewMockFailureNotifier(ctrl)

			pipeline.EXPECT().Run(gomock.Any(), gomock.Any()).Return(model.AnalysisResult{Status: model.ResultSuccess})
			deliverer.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).Return(tt.err).Times(1)
			if tt.wantNotify {
				notifier.EXPECT().NotifyAnalysisFailure(gomock.Any(), gomock.Any()).Do(
					func(_ context.Context, p notify.AnalysisFailurePayload) {
						assert.Equal(t, notify.StageDelivery, p.Stage)
						assert.Equal(t, "delivery", p.ErrorClass)
						assert.Equal(t, "http://callback.invalid/analysis/1", p.CallbackURL)
					})
			}

			o := newTestOrchestrator(t, OrchestratorOptions{Pipeline: pipeline, Deliverer: deliverer, Notifier: notifier})
			handle, err := o.Submit(context.Background(), testutil.NewSubmission().Request(t))
			require.NoError(t, err)

			out := waitDone(t, handle)
			assert.Equal(t, model.JobDelivered, out.State)
			require.ErrorIs(t, out.DeliveryErr, tt.err)
			require.NoError(t, o.Shutdown(context.Background()))
		})
	}
}

func TestOrchestrator_FailedAnalysisNotifiesWarning(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctrl := gomock.NewController(t)
	pipeline := mocks.NewMockPipeline(ctrl)
	deliverer := mocks.NewMockDeliverer(ctrl)
	notifier := mocks.NewMockFailureNotifier(ctrl)

	pipeline.EXPECT().Run(gomock.Any(), gomock.Any()).Return(model.NewFailureResult("Model fitting failed."))
	deliverer.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	notifier.EXPECT().NotifyAnalysisFailure(gomock.Any(), gomock.Any()).Do(
		func(_ context.Context, p notify.AnalysisFailurePayload) {
			assert.Equal(t, notify.StageAnalysis, p.Stage)
			assert.Equal(t, notify.SeverityWarning, p.Severity)
			assert.Equal(t, "Model fitting failed.", p.Error)
		})

	o := newTestOrchestrator(t, OrchestratorOptions{Pipeline: pipeline, Deliverer: deliverer, Notifier: notifier})
	handle, err := o.Submit(context.Background(), testutil.NewSubmission().Request(t))
	require.NoError(t, err)
	waitDone(t, handle)
	require.NoError(t, o.Shutdown(context.Background()))
}

func TestOrchestrator_TrackerFailureDoesNotAffectJob(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctrl := gomock.NewController(t)
	pipeline := mocks.NewMockPipeline(ctrl)
	deliverer := mocks.NewMockDeliverer(ctrl)
	tracker := mocks.NewMockJobTracker(ctrl)

	tracker.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("redis down")).Times(3)
	pipeline.EXPECT().Run(gomock.Any(), gomock.Any()).Return(model.AnalysisResult{Status: model.ResultSuccess})
	deliverer.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	o := newTestOrchestrator(t, OrchestratorOptions{Pipeline: pipeline, Deliverer: deliverer, Tracker: tracker})
	handle, err := o.Submit(context.Background(), testutil.NewSubmission().Request(t))
	require.NoError(t, err)
	assert.Equal(t, model.JobDelivered, waitDone(t, handle).State)
	require.NoError(t, o.Shutdown(context.Background()))
}

func TestOrchestrator_PanickingTrackerAndNotifierAreContained(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctrl := gomock.NewController(t)
	pipeline := mocks.NewMockPipeline(ctrl)
	deliverer := mocks.NewMockDeliverer(ctrl)
	tracker := mocks.NewMockJobTracker(ctrl)
	notifier := mocks.NewMockFailureNotifier(ctrl)

	failure := model.NewFailureResult("Model fitting failed.")
	tracker.EXPECT().Save(gomock.Any(), gomock.Any()).Do(func(context.Context, model.JobRecord) {
		panic("tracker exploded")
	}).Times(3)
	notifier.EXPECT().NotifyAnalysisFailure(gomock.Any(), gomock.Any()).Do(
		func(context.Context, notify.AnalysisFailurePayload) {
			panic("notifier exploded")
		}).Times(2)
	pipeline.EXPECT().Run(gomock.Any(), gomock.Any()).Return(failure)
	deliverer.EXPECT().Deliver(gomock.Any(), gomock.Any(), failure).Return(errors.New("connection refused")).Times(1)

	o := newTestOrchestrator(t, OrchestratorOptions{
		Pipeline: pipeline, Deliverer: deliverer, Tracker: tracker, Notifier: notifier,
	})
	handle, err := o.Submit(context.Background(), testutil.NewSubmission().Request(t))
	require.NoError(t, err)

	out := waitDone(t, handle)
	assert.Equal(t, model.JobDelivered, out.State)
	assert.Equal(t, failure, out.Result)
	require.Error(t, out.DeliveryErr)
	require.NoError(t, o.Shutdown(context.Background()))
}

func TestOrchestrator_CanceledSubmitContextDoesNotCancelJob(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctrl := gomock.NewController(t)
	pipeline := mocks.NewMockPipeline(ctrl)
	deliverer := mocks.NewMockDeliverer(ctrl)

	pipeline.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ *model.AnalysisRequest) model.AnalysisResult {
			assert.NoError(t, ctx.Err())
			return model.AnalysisResult{Status: model.ResultSuccess}
		})
	deliverer.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ model.CallbackTarget, _ model.AnalysisResult) error {
			return ctx.Err()
		})

	ctx, cancel := context.WithCancel(context.Background())
	o := newTestOrchestrator(t, OrchestratorOptions{Pipeline: pipeline, Deliverer: deliverer})
	handle, err := o.Submit(ctx, testutil.NewSubmission().Request(t))
	require.NoError(t, err)
	cancel()

	out := waitDone(t, handle)
	assert.NoError(t, out.DeliveryErr)
	require.NoError(t, o.Shutdown(context.Background()))
}

func TestOrchestrator_MaxConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctrl := gomock.NewController(t)
	pipeline := mocks.NewMockPipeline(ctrl)
	deliverer := mocks.NewMockDeliverer(ctrl)

	var running, peak atomic.Int32
	pipeline.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *model.AnalysisRequest) model.AnalysisResult {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return model.AnalysisResult{Status: model.ResultSuccess}
		}).Times(6)
	deliverer.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(6)

	o, err := NewOrchestrator(OrchestratorOptions{Pipeline: pipeline, Deliverer: deliverer, MaxConcurrency: 2})
	require.NoError(t, err)

	var handles []*JobHandle
	req := testutil.NewSubmission().Request(t)
	for range 6 {
		h, err := o.Submit(context.Background(), req)
		require.NoError(t, err)
		handles = append(handles, h)
	}
	ids := map[string]bool{}
	for _, h := range handles {
		waitDone(t, h)
		ids[h.ID] = true
	}
	assert.Len(t, ids, 6, "identical submissions are not deduplicated")
	assert.LessOrEqual(t, peak.Load(), int32(2))
	require.NoError(t, o.Shutdown(context.Background()))
}

func TestOrchestrator_ShutdownDrainsAndRejects(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctrl := gomock.NewController(t)
	pipeline := mocks.NewMockPipeline(ctrl)
	deliverer := mocks.NewMockDeliverer(ctrl)

	started := make(chan struct{})
	release := make(chan struct{})
	pipeline.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *model.AnalysisRequest) model.AnalysisResult {
			close(started)
			<-release
			return model.AnalysisResult{Status: model.ResultSuccess}
		})
	deliverer.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	o := newTestOrchestrator(t, OrchestratorOptions{Pipeline: pipeline, Deliverer: deliverer})
	handle, err := o.Submit(context.Background(), testutil.NewSubmission().Request(t))
	require.NoError(t, err)
	<-started
	assert.Equal(t, int64(1), o.InFlight())

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, o.Shutdown(short), context.DeadlineExceeded)

	_, err = o.Submit(context.Background(), testutil.NewSubmission().Request(t))
	require.ErrorIs(t, err, ErrShuttingDown)
	assert.True(t, apperrors.IsUnavailable(err))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, o.Shutdown(context.Background()))
	}()
	close(release)
	wg.Wait()
	assert.Equal(t, model.JobDelivered, waitDone(t, handle).State)
	assert.Zero(t, o.InFlight())
}

func TestNewOrchestrator_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	_, err := NewOrchestrator(OrchestratorOptions{Deliverer: mocks.NewMockDeliverer(ctrl)})
	require.Error(t, err)
	_, err = NewOrchestrator(OrchestratorOptions{Pipeline: mocks.NewMockPipeline(ctrl)})
	require.Error(t, err)
	_, err = NewOrchestrator(OrchestratorOptions{
		Pipeline: mocks.NewMockPipeline(ctrl), Deliverer: mocks.NewMockDeliverer(ctrl), MaxConcurrency: -1,
	})
	require.Error(t, err)
}
