// Package audit implements the Audit Store (spec.md §4.4): an append-only
// record of every processing attempt, regardless of outcome.
package audit

import "time"

// Status is the terminal outcome an audit entry records.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Entry is one append-only audit record (spec.md §3).
type Entry struct {
	URL                string    `bson:"url" json:"url"`
	PublisherID        int64     `bson:"publisher_id" json:"publisher_id"`
	JobID              string    `bson:"job_id" json:"job_id"`
	WorkerID           string    `bson:"worker_id" json:"worker_id"`
	Status             Status    `bson:"status" json:"status"`
	AttemptNumber      int       `bson:"attempt_number" json:"attempt_number"`
	StartedAt          time.Time `bson:"started_at" json:"started_at"`
	CompletedAt        time.Time `bson:"completed_at" json:"completed_at"`
	ProcessingTimeSecs float64   `bson:"processing_time_seconds" json:"processing_time_seconds"`

	// Populated when Status == StatusCompleted.
	QuestionCount  int `bson:"question_count,omitempty" json:"question_count,omitempty"`
	SummaryLength  int `bson:"summary_length,omitempty" json:"summary_length,omitempty"`
	EmbeddingCount int `bson:"embedding_count,omitempty" json:"embedding_count,omitempty"`

	// Populated when Status == StatusFailed.
	ErrorMessage      string `bson:"error_message,omitempty" json:"error_message,omitempty"`
	ErrorType         string `bson:"error_type,omitempty" json:"error_type,omitempty"`
	ErrorStackTrace   string `bson:"error_stack_trace,omitempty" json:"error_stack_trace,omitempty"`

	// Optional snapshots (spec.md §3).
	BlogTitle        string `bson:"blog_title,omitempty" json:"blog_title,omitempty"`
	ContentLength    int    `bson:"content_length,omitempty" json:"content_length,omitempty"`
	LLMModel         string `bson:"llm_model,omitempty" json:"llm_model,omitempty"`
	EmbeddingModel   string `bson:"embedding_model,omitempty" json:"embedding_model,omitempty"`
	PublisherConfig  string `bson:"publisher_config,omitempty" json:"publisher_config,omitempty"`
	IsReprocess      bool   `bson:"is_reprocess,omitempty" json:"is_reprocess,omitempty"`
	ReprocessReason  string `bson:"reprocess_reason,omitempty" json:"reprocess_reason,omitempty"`
}
