// Package queue implements the Queue Store (spec.md §4.3): the single
// source of truth for a normalized URL's processing lifecycle.
package queue

import "time"

// Status is one of the QueueEntry lifecycle states (spec.md §3, §4.10).
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusRetry      Status = "retry"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Entry is the per-URL processing record (spec.md §3).
type Entry struct {
	URL                 string     `bson:"url" json:"url"`
	PublisherID          int64      `bson:"publisher_id" json:"publisher_id"`
	Status               Status     `bson:"status" json:"status"`
	AttemptCount         int        `bson:"attempt_count" json:"attempt_count"`
	CurrentJobID         string     `bson:"current_job_id,omitempty" json:"current_job_id,omitempty"`
	WorkerID             string     `bson:"worker_id,omitempty" json:"worker_id,omitempty"`
	LastError            string     `bson:"last_error,omitempty" json:"last_error,omitempty"`
	ErrorType            string     `bson:"error_type,omitempty" json:"error_type,omitempty"`
	HeartbeatAt          *time.Time `bson:"heartbeat_at,omitempty" json:"heartbeat_at,omitempty"`
	HeartbeatIntervalSec int        `bson:"heartbeat_interval_seconds" json:"heartbeat_interval_seconds"`
	CreatedAt            time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `bson:"updated_at" json:"updated_at"`
	StartedAt            *time.Time `bson:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt          *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	ReprocessedCount     int        `bson:"reprocessed_count" json:"reprocessed_count"`
	LastReprocessedAt    *time.Time `bson:"last_reprocessed_at,omitempty" json:"last_reprocessed_at,omitempty"`
	WasPreviouslyCompleted bool     `bson:"was_previously_completed" json:"was_previously_completed"`
	// Reserved is true while this entry's `queued` state is backed by an
	// actual Publisher Store slot reservation. The threshold gate
	// (internal/checkandload) creates entries below threshold with
	// Reserved=false; JobsCancelHandler must only release a slot for
	// entries where this is true (spec.md §8 invariants 5, 6).
	Reserved bool `bson:"reserved" json:"reserved"`
}

// IsActive reports whether the entry is holding a worker lease.
func (e *Entry) IsActive() bool {
	return e.Status == StatusProcessing
}

// IsTerminal reports whether the entry has reached a final state.
func (e *Entry) IsTerminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusFailed
}
