package publisher

import "github.com/google/uuid"

// NewAPIKey generates a fresh pub_-prefixed API key (spec.md §6: "X-API-
// Key: pub_…"), the same uuid.NewString source the Queue Store already
// uses for current_job_id, just prefixed to name the token's purpose.
func NewAPIKey() string {
	return "pub_" + uuid.NewString()
}
