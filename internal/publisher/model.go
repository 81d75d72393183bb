// Package publisher implements the Publisher Store (spec.md §4.2): identity,
// policy configuration and quota accounting for every onboarded publisher.
package publisher

import "time"

// Config is the per-publisher policy (spec.md §3). RequestThreshold is
// SPEC_FULL.md's resolution of spec.md §4.8's "per-URL request
// threshold" gate, left unnamed in spec.md §3 — see DESIGN.md's Open
// Question decisions. It defaults to 1 (process on first request) when
// zero-valued, preserving today's check-and-load behavior for publishers
// configured before this field existed.
type Config struct {
	DailyBlogLimit         int      `json:"daily_blog_limit"`
	WhitelistedURLPatterns []string `json:"whitelisted_url_patterns"`
	LLMModel               string   `json:"llm_model"`
	EmbeddingModel         string   `json:"embedding_model"`
	QuestionsPerBlog       int      `json:"questions_per_blog"`
	CustomQuestionPrompt   string   `json:"custom_question_prompt,omitempty"`
	CustomSummaryPrompt    string   `json:"custom_summary_prompt,omitempty"`
	RequestThreshold       int      `json:"request_threshold,omitempty"`
}

// EffectiveRequestThreshold returns RequestThreshold, defaulting to 1.
func (c Config) EffectiveRequestThreshold() int {
	if c.RequestThreshold <= 0 {
		return 1
	}
	return c.RequestThreshold
}

// Usage tracks the quota counters a publisher accrues over time (spec.md §3,
// §4.2). CurrentDayBucket stores the UTC calendar date the counters were
// last reset against, as YYYY-MM-DD.
type Usage struct {
	BlogsProcessedTotal  int64  `json:"blogs_processed_total"`
	BlogsProcessedToday  int64  `json:"blogs_processed_today"`
	CurrentDayBucket     string `json:"current_day_bucket"`
	InFlightReservations int64  `json:"in_flight_reservations"`
}

// Publisher is the identity + policy record described in spec.md §3.
type Publisher struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	PrimaryDomain string    `json:"primary_domain"`
	APIKey        string    `json:"api_key"`
	IsAdmin       bool      `json:"is_admin"`
	Active        bool      `json:"active"`
	Config        Config    `json:"config"`
	Usage         Usage     `json:"usage"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RemainingToday reports how much quota is left for new reservations.
func (p *Publisher) RemainingToday() int64 {
	remaining := int64(p.Config.DailyBlogLimit) - p.Usage.BlogsProcessedToday - p.Usage.InFlightReservations
	if remaining < 0 {
		return 0
	}
	return remaining
}
