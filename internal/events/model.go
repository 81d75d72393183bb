package events

import "time"

// BlogProcessed is the fire-and-forget notification published after a
// queue entry reaches a terminal state (spec.md §4.9/§4.10, SPEC_FULL.md
// §4.15). It carries enough of the audit trail for a downstream consumer
// (analytics, search indexing, a publisher webhook) to act without
// querying the pipeline's own stores back.
type BlogProcessed struct {
	URL           string    `json:"url"`
	PublisherID   string    `json:"publisher_id"`
	Status        string    `json:"status"` // "completed" | "failed"
	JobID         string    `json:"job_id"`
	QuestionCount int       `json:"question_count,omitempty"`
	ErrorType     string    `json:"error_type,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
