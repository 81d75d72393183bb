// Package metrics registers the Prometheus collectors both the
// blogqa-api and blogqa-worker binaries expose at /metrics, mirroring
// the metric names the original Python worker's metrics.py tracked
// (jobs polled/processed, processing/crawl/LLM durations, token counts,
// questions/embeddings generated, queue depth, worker uptime) using
// prometheus/client_golang — already a teacher dependency
// (go.mod requires github.com/prometheus/client_golang).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "blogqa"

var (
	// JobsPolledTotal counts every WorkerLease attempt, hit or miss.
	JobsPolledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_polled_total",
		Help:      "Total number of times a worker polled the Queue Store for a lease.",
	}, []string{"worker_id", "leased"})

	// JobsProcessedTotal counts terminal and retry outcomes by status and
	// error type.
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_processed_total",
		Help:      "Total number of queue entries that reached a terminal or retry state.",
	}, []string{"status", "error_type"})

	// ProcessingDurationSeconds times a full orchestrator Run call.
	ProcessingDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "processing_duration_seconds",
		Help:      "Time spent in a single Processing Orchestrator run.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"outcome"})

	// CrawlDurationSeconds times the crawl step alone.
	CrawlDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "crawl_duration_seconds",
		Help:      "Time spent fetching and extracting a single blog URL.",
		Buckets:   prometheus.DefBuckets,
	})

	// LLMCallDurationSeconds times a single chat-completion call, labeled
	// by provider and call kind (summary vs questions).
	LLMCallDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "llm_call_duration_seconds",
		Help:      "Time spent waiting on a single LLM provider call.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider", "kind"})

	// LLMTokensTotal is registered for prompt/completion token usage; no
	// provider adapter in this repository increments it.
	LLMTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_tokens_total",
		Help:      "Total LLM tokens consumed, by provider and token kind.",
	}, []string{"provider", "kind"})

	// QuestionsGeneratedTotal and EmbeddingsGeneratedTotal count the
	// orchestrator's per-blog output volume.
	QuestionsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "questions_generated_total",
		Help:      "Total number of Q&A pairs generated across all blogs.",
	})
	EmbeddingsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embeddings_generated_total",
		Help:      "Total number of embedding vectors generated (summary + questions).",
	})

	// QueueDepth is a gauge snapshotting the Queue Store's per-status
	// backlog, refreshed periodically by the worker's liveness reclaimer
	// loop (the only component already polling the Queue Store on an
	// interval).
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current number of QueueEntry documents per status.",
	}, []string{"status"})

	// WorkerStartTimeSeconds is a gauge set once at startup and read by
	// scraping tools as `time() - blogqa_worker_start_time_seconds`.
	WorkerStartTimeSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "worker_start_time_seconds",
		Help:      "Unix timestamp when this worker process started.",
	})

	// StaleReclaimedTotal counts liveness-reclaimer transitions.
	StaleReclaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_reclaimed_total",
		Help:      "Total number of queue entries reclaimed from an orphaned processing lease.",
	})
)

// RecordWorkerStart stamps WorkerStartTimeSeconds with t, letting the
// caller (the worker binary's main) pass a single, injectable "now"
// rather than calling time.Now() from inside this package.
func RecordWorkerStart(t time.Time) {
	WorkerStartTimeSeconds.Set(float64(t.Unix()))
}
