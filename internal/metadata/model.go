// Package metadata implements the URLMetadata Store (spec.md §4.5): request
// counters the Check-and-Load Service uses to decide when a URL has been
// asked about often enough to warrant processing.
package metadata

import "time"

// Record is the per-URL request counter (spec.md §3).
type Record struct {
	URL              string    `bson:"url" json:"url"`
	PublisherID      int64     `bson:"publisher_id" json:"publisher_id"`
	RequestCount     int       `bson:"request_count" json:"request_count"`
	FirstRequestedAt time.Time `bson:"first_requested_at" json:"first_requested_at"`
	LastRequestedAt  time.Time `bson:"last_requested_at" json:"last_requested_at"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at" json:"updated_at"`
}
