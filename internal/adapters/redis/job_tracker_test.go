package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyportal/nmma-analysis/internal/domain/model"
	apperrors "github.com/skyportal/nmma-analysis/internal/errors"
	"github.com/skyportal/nmma-analysis/internal/testutil"
)

func sampleRecord(t *testing.T) model.JobRecord {
	t.Helper()
	req := testutil.NewSubmission().Request(t)
	return model.NewJobRecord("job-1", req, testutil.TestTime())
}

func TestJobTracker_SaveAndGet(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	tracker := NewJobTracker(client, time.Hour)
	ctx := context.Background()

	rec := sampleRecord(t)
	require.NoError(t, tracker.Save(ctx, rec))

	got, err := tracker.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "ZTF21abcdefg", got.ObjectID)
	assert.Equal(t, "Me2017", got.Model)
	assert.Equal(t, model.JobAccepted, got.State)
	assert.True(t, rec.AcceptedAt.Equal(got.AcceptedAt))

	ttl, err := client.TTL(ctx, DefaultJobKeyPrefix+"job-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
}

func TestJobTracker_SaveOverwritesState(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	tracker := NewJobTracker(client, 0)
	ctx := context.Background()

	rec := sampleRecord(t)
	require.NoError(t, tracker.Save(ctx, rec))

	running, err := rec.Advance(model.JobRunning, testutil.TestTime().Add(time.Second))
	require.NoError(t, err)
	done, err := running.Advance(model.JobDelivered, testutil.TestTime().Add(time.Minute))
	require.NoError(t, err)
	done.Status = model.ResultSuccess
	done.Message = "fitted"
	require.NoError(t, tracker.Save(ctx, done))

	got, err := tracker.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobDelivered, got.State)
	assert.Equal(t, model.ResultSuccess, got.Status)
	assert.Equal(t, "fitted", got.Message)
}

func TestJobTracker_GetUnknown(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	tracker := NewJobTrackerWithPrefix(client, "test:job:", time.Minute)

	_, err := tracker.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = tracker.Get(context.Background(), "")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestJobTracker_SaveRejectsEmptyID(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	tracker := NewJobTracker(client, time.Minute)
	require.Error(t, tracker.Save(context.Background(), model.JobRecord{}))
}
