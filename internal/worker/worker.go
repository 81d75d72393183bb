// Package worker implements the Worker Runtime (spec.md §4.10): the
// poll/lease/heartbeat loop that drives the Processing Orchestrator
// (§4.9) and owns every QueueEntry transition and AuditEntry write.
package worker

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/the-monkeys/blogqa/constants"
	"github.com/the-monkeys/blogqa/internal/audit"
	"github.com/the-monkeys/blogqa/internal/events"
	"github.com/the-monkeys/blogqa/internal/metrics"
	"github.com/the-monkeys/blogqa/internal/orchestrator"
	"github.com/the-monkeys/blogqa/internal/publisher"
	"github.com/the-monkeys/blogqa/internal/queue"
	"github.com/the-monkeys/blogqa/logger"
)

var log = logger.ZapForService("worker")

// jobRunner is the Processing Orchestrator's Run method, narrowed to an
// interface so tests can drive the Worker Runtime's retry/fail/audit
// bookkeeping without running a real crawl+LLM pipeline.
type jobRunner interface {
	Run(ctx context.Context, url string, pub *publisher.Publisher) (*orchestrator.Outcome, error)
}

// NewWorkerID builds a stable id per spec.md §4.10 ("host + pid + random
// suffix is sufficient").
func NewWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown-host"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8])
}

// Runner polls the Queue Store, runs the Processing Orchestrator for
// each leased entry, and applies spec.md §4.10's retry/fail policy.
type Runner struct {
	id           string
	queue        queue.Store
	publishers   publisher.Store
	audit        audit.Store
	orchestrator jobRunner
	notifier     events.Publisher

	pollInterval time.Duration
	maxRetries   int
}

// Option configures a Runner at construction time.
type Option func(*Runner)

// WithMaxRetries overrides the default max_retries=3 of spec.md §4.10.
func WithMaxRetries(n int) Option {
	return func(r *Runner) { r.maxRetries = n }
}

// WithNotifier wires an Event Notifier (§4.15); defaults to a no-op.
func WithNotifier(n events.Publisher) Option {
	return func(r *Runner) { r.notifier = n }
}

// New builds a Runner.
func New(id string, queueStore queue.Store, publisherStore publisher.Store, auditStore audit.Store, orch jobRunner, pollInterval time.Duration, opts ...Option) *Runner {
	r := &Runner{
		id:           id,
		queue:        queueStore,
		publishers:   publisherStore,
		audit:        auditStore,
		orchestrator: orch,
		notifier:     events.NoopPublisher{},
		pollInterval: pollInterval,
		maxRetries:   constants.MaxRetries,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run blocks, polling for leasable work until ctx is canceled. A
// canceled ctx lets any in-flight job finish before Run returns
// (spec.md §4.10 "Graceful shutdown: ... let in-flight jobs finish").
func (r *Runner) Run(ctx context.Context) {
	log.Infow("worker runtime starting", "worker_id", r.id, "poll_interval", r.pollInterval)
	for {
		if ctx.Err() != nil {
			log.Infow("worker runtime stopping", "worker_id", r.id)
			return
		}

		entry, err := r.queue.WorkerLease(ctx, r.id)
		if err != nil {
			log.Errorw("worker lease failed", "worker_id", r.id, "error", err)
			r.sleep(ctx)
			continue
		}
		if entry == nil {
			metrics.JobsPolledTotal.WithLabelValues(r.id, "false").Inc()
			r.sleep(ctx)
			continue
		}
		metrics.JobsPolledTotal.WithLabelValues(r.id, "true").Inc()

		r.processLeasedEntry(context.WithoutCancel(ctx), entry)
	}
}

func (r *Runner) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(r.pollInterval):
	}
}

// processLeasedEntry runs one full attempt: heartbeat task, orchestrator
// invocation, and the terminal transition + audit write + slot release
// spec.md §4.10 requires of every outcome.
func (r *Runner) processLeasedEntry(ctx context.Context, entry *queue.Entry) {
	startedAt := time.Now().UTC()

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go r.runHeartbeat(heartbeatCtx, entry.URL, entry.HeartbeatIntervalSec)

	pub, err := r.publishers.GetByID(ctx, entry.PublisherID)
	if err != nil {
		log.Errorw("cannot load publisher for leased entry", "url", entry.URL, "publisher_id", entry.PublisherID, "error", err)
		r.fail(ctx, entry, startedAt, constants.ErrorTypeInternal, err)
		return
	}

	outcome, runErr := r.orchestrator.Run(ctx, entry.URL, pub)
	if runErr != nil {
		errorType := constants.ErrorTypeInternal
		if orchErr, ok := runErr.(*orchestrator.Error); ok {
			errorType = orchErr.ErrorType
		}
		r.fail(ctx, entry, startedAt, errorType, runErr)
		metrics.ProcessingDurationSeconds.WithLabelValues("failed").Observe(time.Since(startedAt).Seconds())
		return
	}

	r.succeed(ctx, entry, pub, startedAt, outcome)
	metrics.ProcessingDurationSeconds.WithLabelValues("completed").Observe(time.Since(startedAt).Seconds())
}

// runHeartbeat calls heartbeat(url, worker_id) every
// heartbeat_interval_seconds/2 until ctx is canceled (spec.md §4.10).
func (r *Runner) runHeartbeat(ctx context.Context, url string, heartbeatIntervalSec int) {
	if heartbeatIntervalSec <= 0 {
		heartbeatIntervalSec = constants.DefaultHeartbeatIntervalSeconds
	}
	interval := time.Duration(heartbeatIntervalSec) * time.Second / 2
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := r.queue.Heartbeat(ctx, url, r.id)
			if err != nil {
				log.Warnw("heartbeat call failed", "url", url, "worker_id", r.id, "error", err)
			} else if !ok {
				// Lost the lease (reclaimed, or the entry already moved
				// on) — nothing left for this heartbeat task to do.
				return
			}
		}
	}
}

// succeed implements spec.md §4.10's success path: transition to
// completed, append a completed audit row, release the slot processed.
func (r *Runner) succeed(ctx context.Context, entry *queue.Entry, pub *publisher.Publisher, startedAt time.Time, outcome *orchestrator.Outcome) {
	completedAt := time.Now().UTC()
	processing := queue.StatusProcessing
	updated, err := r.queue.Transition(ctx, entry.URL, &processing, queue.StatusCompleted, bson.M{
		"completed_at": completedAt,
	})
	if err != nil {
		log.Errorw("failed to transition entry to completed", "url", entry.URL, "error", err)
	}

	jobID := entry.CurrentJobID
	attempt := entry.AttemptCount
	if updated != nil {
		jobID = updated.CurrentJobID
		attempt = updated.AttemptCount
	}

	if err := r.audit.Append(ctx, &audit.Entry{
		URL:                entry.URL,
		PublisherID:        entry.PublisherID,
		JobID:              jobID,
		WorkerID:           r.id,
		Status:             audit.StatusCompleted,
		AttemptNumber:      attempt,
		StartedAt:          startedAt,
		CompletedAt:        completedAt,
		ProcessingTimeSecs: completedAt.Sub(startedAt).Seconds(),
		QuestionCount:      outcome.QuestionCount,
		SummaryLength:      outcome.SummaryLength,
		EmbeddingCount:     outcome.EmbeddingCount,
		BlogTitle:          outcome.BlogTitle,
		ContentLength:      outcome.ContentLength,
		LLMModel:           pub.Config.LLMModel,
		EmbeddingModel:     pub.Config.EmbeddingModel,
		IsReprocess:        entry.ReprocessedCount > 0,
	}); err != nil {
		log.Errorw("failed to append completed audit entry", "url", entry.URL, "error", err)
	}

	if err := r.publishers.ReleaseBlogSlot(ctx, entry.PublisherID, true); err != nil {
		log.Errorw("failed to release blog slot", "url", entry.URL, "publisher_id", entry.PublisherID, "error", err)
	}

	metrics.JobsProcessedTotal.WithLabelValues(string(queue.StatusCompleted), "").Inc()
	metrics.QuestionsGeneratedTotal.Add(float64(outcome.QuestionCount))
	metrics.EmbeddingsGeneratedTotal.Add(float64(outcome.EmbeddingCount))

	r.notifier.BlogProcessed(ctx, events.BlogProcessed{
		URL:           entry.URL,
		PublisherID:   strconv.FormatInt(entry.PublisherID, 10),
		Status:        string(queue.StatusCompleted),
		JobID:         jobID,
		QuestionCount: outcome.QuestionCount,
		OccurredAt:    completedAt,
	})
}

// fail implements spec.md §4.10's failure path: retry while under the
// attempt budget and the error is retryable, otherwise fail — appending
// the matching audit row and always releasing the slot unprocessed.
// Called both for orchestrator errors and for infrastructure errors
// encountered outside the orchestrator (e.g. failing to load the
// publisher record).
func (r *Runner) fail(ctx context.Context, entry *queue.Entry, startedAt time.Time, errorType string, cause error) {
	retryable := isRetryable(cause)
	completedAt := time.Now().UTC()

	toStatus := queue.StatusFailed
	if entry.AttemptCount < r.maxRetries && retryable {
		toStatus = queue.StatusRetry
	}

	processing := queue.StatusProcessing
	updated, err := r.queue.Transition(ctx, entry.URL, &processing, toStatus, bson.M{
		"last_error": cause.Error(),
		"error_type": errorType,
	})
	if err != nil {
		log.Errorw("failed to transition entry after failure", "url", entry.URL, "to", toStatus, "error", err)
	}

	jobID := entry.CurrentJobID
	attempt := entry.AttemptCount
	if updated != nil {
		jobID = updated.CurrentJobID
		attempt = updated.AttemptCount
	}

	if err := r.audit.Append(ctx, &audit.Entry{
		URL:                entry.URL,
		PublisherID:        entry.PublisherID,
		JobID:              jobID,
		WorkerID:           r.id,
		Status:             audit.StatusFailed,
		AttemptNumber:      attempt,
		StartedAt:          startedAt,
		CompletedAt:        completedAt,
		ProcessingTimeSecs: completedAt.Sub(startedAt).Seconds(),
		ErrorMessage:       cause.Error(),
		ErrorType:          errorType,
	}); err != nil {
		log.Errorw("failed to append failed audit entry", "url", entry.URL, "error", err)
	}

	if err := r.publishers.ReleaseBlogSlot(ctx, entry.PublisherID, false); err != nil {
		log.Errorw("failed to release blog slot", "url", entry.URL, "publisher_id", entry.PublisherID, "error", err)
	}

	metrics.JobsProcessedTotal.WithLabelValues(string(toStatus), errorType).Inc()

	if toStatus == queue.StatusFailed {
		r.notifier.BlogProcessed(ctx, events.BlogProcessed{
			URL:         entry.URL,
			PublisherID: strconv.FormatInt(entry.PublisherID, 10),
			Status:      string(queue.StatusFailed),
			JobID:       jobID,
			ErrorType:   errorType,
			OccurredAt:  completedAt,
		})
	}
}

// ReclaimStale implements the liveness reclaimer of spec.md §4.10: a
// housekeeping pass that finds entries stuck in `processing` whose
// heartbeat is older than LivenessSafetyMultiplier × their own heartbeat
// interval and transitions them back to `retry` (or `failed`, once the
// attempt budget is exhausted) so an orphaned lease — e.g. a worker that
// crashed mid-job — doesn't strand a URL forever.
func (r *Runner) ReclaimStale(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(constants.LivenessSafetyMultiplier*constants.DefaultHeartbeatIntervalSeconds) * time.Second)
	stale, err := r.queue.ListStaleProcessing(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, entry := range stale {
		entryCutoff := time.Now().UTC().Add(-time.Duration(constants.LivenessSafetyMultiplier*entry.HeartbeatIntervalSec) * time.Second)
		if entry.HeartbeatAt == nil || entry.HeartbeatAt.After(entryCutoff) {
			continue
		}

		toStatus := queue.StatusRetry
		if entry.AttemptCount >= r.maxRetries {
			toStatus = queue.StatusFailed
		}

		processing := queue.StatusProcessing
		updated, err := r.queue.Transition(ctx, entry.URL, &processing, toStatus, bson.M{
			"last_error": "worker heartbeat timed out",
			"error_type": constants.ErrorTypeInternal,
		})
		if err != nil {
			log.Errorw("failed to reclaim stale entry", "url", entry.URL, "error", err)
			continue
		}
		if updated == nil {
			// Lost the race — some other worker already moved this entry
			// on before we got to it.
			continue
		}

		log.Warnw("reclaimed stale processing entry", "url", entry.URL, "worker_id", entry.WorkerID, "to_status", toStatus)

		if err := r.publishers.ReleaseBlogSlot(ctx, entry.PublisherID, false); err != nil {
			log.Errorw("failed to release blog slot while reclaiming", "url", entry.URL, "publisher_id", entry.PublisherID, "error", err)
		}

		if toStatus == queue.StatusFailed {
			r.notifier.BlogProcessed(ctx, events.BlogProcessed{
				URL:         entry.URL,
				PublisherID: strconv.FormatInt(entry.PublisherID, 10),
				Status:      string(queue.StatusFailed),
				JobID:       updated.CurrentJobID,
				ErrorType:   constants.ErrorTypeInternal,
				OccurredAt:  time.Now().UTC(),
			})
		}

		metrics.StaleReclaimedTotal.Inc()
		reclaimed++
	}
	return reclaimed, nil
}

// RunLivenessReclaimer runs ReclaimStale on a timer until ctx is
// canceled. spec.md §4.10 describes this as a separate housekeeping
// routine, not part of the poll/lease loop itself.
func (r *Runner) RunLivenessReclaimer(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.ReclaimStale(ctx)
			if err != nil {
				log.Errorw("liveness reclaimer scan failed", "error", err)
				continue
			}
			if n > 0 {
				log.Infow("liveness reclaimer reclaimed entries", "count", n)
			}
			r.refreshQueueDepth(ctx)
		}
	}
}

// refreshQueueDepth snapshots the Queue Store's per-status backlog into
// the queue_depth gauge. Piggybacked on the liveness reclaimer's own
// ticker since it is already the one component polling the Queue Store
// on a fixed interval outside the hot lease path.
func (r *Runner) refreshQueueDepth(ctx context.Context) {
	counts, err := r.queue.CountByStatus(ctx)
	if err != nil {
		log.Warnw("queue depth refresh failed", "error", err)
		return
	}
	for _, status := range []queue.Status{queue.StatusQueued, queue.StatusProcessing, queue.StatusRetry, queue.StatusCompleted, queue.StatusFailed} {
		metrics.QueueDepth.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

// isRetryable reports whether cause carries orchestrator retry
// classification; infrastructure errors raised outside the
// orchestrator (e.g. a Publisher Store lookup failure) are treated as
// retryable, since they say nothing about the URL itself being
// unprocessable.
func isRetryable(cause error) bool {
	if orchErr, ok := cause.(*orchestrator.Error); ok {
		return orchErr.Retryable
	}
	return true
}
