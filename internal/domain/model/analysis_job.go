package model

import (
	"fmt"
	"strings"
	"time"
)

// JobState is the lifecycle state of an analysis job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobState string

const (
	// JobAccepted is entered synchronously once a submission validates.
	JobAccepted JobState = "accepted"
	// JobRunning is entered when the pipeline starts on a worker goroutine.
	JobRunning JobState = "running"
	// JobDelivered means the pipeline returned and its result was handed to delivery.
	JobDelivered JobState = "delivered"
	// JobFailed means the pipeline aborted and a synthesized failure was handed to delivery.
	JobFailed JobState = "failed"
)

// Valid returns true if the JobState is known.
func (s JobState) Valid() bool {
	return s == JobAccepted || s == JobRunning || s == JobDelivered || s == JobFailed
}

// Terminal reports whether no further transitions are possible.
func (s JobState) Terminal() bool {
	return s == JobDelivered || s == JobFailed
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *JobState) UnmarshalText(text []byte) error {
	v := JobState(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid JobState: %q", v)
	}
	*s = v
	return nil
}

// CanTransition reports whether moving from s to next is allowed.
// Accepted may complete directly when the pipeline aborts before it is scheduled.
func (s JobState) CanTransition(next JobState) bool {
	switch s {
	case JobAccepted:
		return next == JobRunning || next == JobFailed
	case JobRunning:
		return next == JobDelivered || next == JobFailed
	default:
		return false
	}
}

// JobRecord is the externally visible view of a job, kept by the optional tracker.
type JobRecord struct {
	ID         string       `json:"id"`
	ObjectID   string       `json:"object_id"`
	Model      string       `json:"model"`
	State      JobState     `json:"state"`
	Status     ResultStatus `json:"status,omitempty"`
	Message    string       `json:"message,omitempty"`
	AcceptedAt time.Time    `json:"accepted_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// NewJobRecord builds the record for a freshly accepted job.
func NewJobRecord(id string, req *AnalysisRequest, now time.Time) JobRecord {
	rec := JobRecord{
		ID:         id,
		State:      JobAccepted,
		AcceptedAt: now,
		UpdatedAt:  now,
	}
	if req != nil {
		rec.ObjectID = req.ObjectID
		rec.Model = req.Model()
	}
	return rec
}

// Advance returns a copy moved to next. It errors on an illegal transition.
func (r JobRecord) Advance(next JobState, now time.Time) (JobRecord, error) {
	if !r.State.CanTransition(next) {
		return r, fmt.Errorf("invalid job transition %s -> %s", r.State, next)
	}
	r.State = next
	r.UpdatedAt = now
	return r, nil
}
