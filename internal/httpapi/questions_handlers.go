package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/the-monkeys/blogqa/internal/apperr"
	"github.com/the-monkeys/blogqa/internal/auth"
	"github.com/the-monkeys/blogqa/internal/checkandload"
	"github.com/the-monkeys/blogqa/internal/content"
	"github.com/the-monkeys/blogqa/internal/publisher"
	"github.com/the-monkeys/blogqa/internal/queue"
)

// QuestionsDeps wires the collaborators the questions/jobs handlers need,
// kept as a single struct (rather than a field per handler) since all
// three handlers in this file share the same Auth Service and Queue/
// Publisher Stores.
type QuestionsDeps struct {
	CheckAndLoad *checkandload.Service
	Content      content.Store
	Queue        queue.Store
	Publishers   publisher.Store
	Auth         *auth.Service
}

// CheckAndLoadHandler serves GET /api/v1/questions/check-and-load
// (spec.md §6, §4.8).
func (d *QuestionsDeps) CheckAndLoadHandler(c *gin.Context) {
	pub := MustPublisher(c)
	rawURL := c.Query("blog_url")

	normalized, ok := validateURL(c, d.Auth, pub, rawURL)
	if !ok {
		return
	}

	result, err := d.CheckAndLoad.CheckAndLoad(c.Request.Context(), normalized, pub)
	if err != nil {
		_ = c.Error(err)
		return
	}
	success(c, http.StatusOK, "check-and-load result", result)
}

// ByURLHandler serves GET /api/v1/questions/by-url: a read-only fast
// path that never creates a queue entry, 404ing if no questions exist
// yet (spec.md §6).
func (d *QuestionsDeps) ByURLHandler(c *gin.Context) {
	pub := MustPublisher(c)
	rawURL := c.Query("blog_url")

	normalized, ok := validateURL(c, d.Auth, pub, rawURL)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	questions, err := d.Content.GetQuestions(ctx, normalized, 0)
	if err != nil {
		_ = c.Error(apperr.Internal("BY_URL_QUESTIONS", "cannot read questions", err))
		return
	}
	if len(questions) == 0 {
		_ = c.Error(apperr.NotFound(apperr.CodeQuestionsNotFound, "no questions available for this url"))
		return
	}

	blog, err := d.Content.GetBlog(ctx, normalized)
	if err != nil {
		_ = c.Error(apperr.Internal("BY_URL_BLOG", "cannot read blog", err))
		return
	}

	success(c, http.StatusOK, "questions", gin.H{"blog": blog, "questions": questions})
}

// jobsProcessRequest is the POST /api/v1/jobs/process body (spec.md §6).
type jobsProcessRequest struct {
	BlogURL string `json:"blog_url" binding:"required"`
}

// JobsProcessHandler serves POST /api/v1/jobs/process: the explicit
// enqueue path of SPEC_FULL.md §6, which skips check-and-load's fast
// path and per-URL request threshold entirely and always admits
// unconditionally via auth.Service.Admit.
func (d *QuestionsDeps) JobsProcessHandler(c *gin.Context) {
	pub := MustPublisher(c)

	var req jobsProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "blog_url is required")
		return
	}

	ctx := c.Request.Context()
	normalized, reservation, err := d.Auth.Admit(ctx, pub, req.BlogURL)
	if err != nil {
		_ = c.Error(err)
		return
	}

	entry, created, err := d.Queue.GetOrCreate(ctx, normalized, pub.ID, true)
	if err != nil {
		// Nothing was durably created: give the slot straight back.
		_ = reservation.Release(ctx, false)
		_ = c.Error(apperr.Internal("JOBS_PROCESS_CREATE", "cannot create queue entry", err))
		return
	}

	if !created {
		// An entry already tracks its own reservation lifecycle (or
		// already released one, if terminal); this request's admission
		// would double-count the publisher's quota, so give it back
		// immediately instead of holding it until some future worker run
		// that was never going to use it.
		_ = reservation.Release(ctx, false)
		success(c, http.StatusAccepted, "already queued", gin.H{
			"processing_status": entry.Status,
			"job_id":            entry.CurrentJobID,
		})
		return
	}

	// created == true: this request's reservation now belongs to the
	// worker that will eventually lease and finish this entry — it is
	// released later via publisher.Store.ReleaseBlogSlot from
	// internal/worker, not by this handler.
	success(c, http.StatusAccepted, "enqueued", gin.H{
		"processing_status": entry.Status,
		"job_id":            entry.CurrentJobID,
	})
}
