// Package redis provides Redis-backed adapters for the analysis service.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skyportal/nmma-analysis/internal/domain/model"
	apperrors "github.com/skyportal/nmma-analysis/internal/errors"
)

// DefaultJobKeyPrefix namespaces tracked job records.
const DefaultJobKeyPrefix = "nmma:job:"

// DefaultJobTTL is how long a record survives its last update.
const DefaultJobTTL = 24 * time.Hour

// JobTracker stores JobRecords so callers can poll a job they submitted.
// Each Save refreshes the record's TTL.
type JobTracker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewJobTracker creates a tracker. A non-positive ttl selects DefaultJobTTL.
func NewJobTracker(client redis.UniversalClient, ttl time.Duration) *JobTracker {
	return NewJobTrackerWithPrefix(client, DefaultJobKeyPrefix, ttl)
}

// NewJobTrackerWithPrefix creates a tracker with a custom key prefix. A blank
// prefix selects DefaultJobKeyPrefix.
func NewJobTrackerWithPrefix(client redis.UniversalClient, prefix string, ttl time.Duration) *JobTracker {
	if prefix == "" {
		prefix = DefaultJobKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	return &JobTracker{client: client, prefix: prefix, ttl: ttl}
}

// Save writes rec under its ID, replacing any previous version.
func (s *JobTracker) Save(ctx context.Context, rec model.JobRecord) error {
	if rec.ID == "" {
		return errors.New("job ID cannot be empty")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal job record: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+rec.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get loads a record. Unknown and expired IDs return a not_found AppError.
func (s *JobTracker) Get(ctx context.Context, id string) (model.JobRecord, error) {
	if id == "" {
		return model.JobRecord{}, apperrors.NotFoundf("job not found")
	}
	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.JobRecord{}, apperrors.NotFoundf("job %s not found", id)
		}
		return model.JobRecord{}, fmt.Errorf("redis get: %w", err)
	}

	var rec model.JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.JobRecord{}, fmt.Errorf("unmarshal job record: %w", err)
	}
	return rec, nil
}

// Ping checks the connection; used by the admin CLI before reading records.
func (s *JobTracker) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
