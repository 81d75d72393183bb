package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/the-monkeys/blogqa/internal/apperr"
	"github.com/the-monkeys/blogqa/internal/publisher"
	"github.com/the-monkeys/blogqa/internal/queue"
)

// JobsDeps wires the Queue/Publisher Stores the admin job-inspection
// handlers need.
type JobsDeps struct {
	Queue      queue.Store
	Publishers publisher.Store
}

// JobsStatusHandler serves GET /api/v1/jobs/status/{job_id} (spec.md §6,
// admin-only, since a job id alone reveals a publisher's URL and
// outcome).
func (d *JobsDeps) JobsStatusHandler(c *gin.Context) {
	jobID := c.Param("job_id")
	entry, err := d.Queue.GetByJobID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			_ = c.Error(apperr.NotFound("JOB_NOT_FOUND", "no queue entry for this job id"))
			return
		}
		_ = c.Error(apperr.Internal("JOBS_STATUS", "cannot read queue entry", err))
		return
	}
	success(c, http.StatusOK, "job status", entry)
}

// JobsStatsHandler serves GET /api/v1/jobs/stats: the aggregate
// per-status backlog counts the worker's own queue_depth gauge is
// sourced from (SPEC_FULL.md §4.14), exposed here for an admin
// dashboard that doesn't want to scrape Prometheus.
func (d *JobsDeps) JobsStatsHandler(c *gin.Context) {
	counts, err := d.Queue.CountByStatus(c.Request.Context())
	if err != nil {
		_ = c.Error(apperr.Internal("JOBS_STATS", "cannot count queue entries", err))
		return
	}

	stats := gin.H{}
	total := 0
	for _, status := range []queue.Status{queue.StatusQueued, queue.StatusProcessing, queue.StatusRetry, queue.StatusCompleted, queue.StatusFailed} {
		stats[string(status)] = counts[status]
		total += counts[status]
	}
	stats["total"] = total

	success(c, http.StatusOK, "job stats", stats)
}

// JobsCancelHandler serves POST /api/v1/jobs/cancel/{job_id}: cancel
// while still queued (spec.md §6). Once a job has been leased
// (processing) or has reached a terminal state, cancellation is a
// conflict — the worker already owns it or has already finished it.
func (d *JobsDeps) JobsCancelHandler(c *gin.Context) {
	jobID := c.Param("job_id")
	ctx := c.Request.Context()

	entry, err := d.Queue.GetByJobID(ctx, jobID)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			_ = c.Error(apperr.NotFound("JOB_NOT_FOUND", "no queue entry for this job id"))
			return
		}
		_ = c.Error(apperr.Internal("JOBS_CANCEL_LOOKUP", "cannot read queue entry", err))
		return
	}

	if entry.Status != queue.StatusQueued {
		_ = c.Error(apperr.Conflict("JOB_NOT_CANCELABLE", "job is no longer queued"))
		return
	}

	deleted, err := d.Queue.DeleteIfQueued(ctx, entry.URL)
	if err != nil {
		_ = c.Error(apperr.Internal("JOBS_CANCEL_DELETE", "cannot cancel queue entry", err))
		return
	}
	if !deleted {
		// Lost the race against a worker that leased it between the read
		// above and this delete.
		_ = c.Error(apperr.Conflict("JOB_NOT_CANCELABLE", "job is no longer queued"))
		return
	}

	// Only give back a slot if this entry actually held one: the
	// check-and-load threshold gate queues entries below threshold
	// without ever reserving (internal/checkandload.admitNew), and
	// releasing for one of those would steal a slot from whatever other
	// in-flight reservation this publisher currently holds.
	if entry.Reserved {
		if err := d.Publishers.ReleaseBlogSlot(ctx, entry.PublisherID, false); err != nil {
			log.Warnw("failed to release blog slot on cancel", "job_id", jobID, "error", err)
		}
	}

	success(c, http.StatusOK, "job canceled", gin.H{"job_id": jobID})
}
