// Package checkandload implements the Check-and-Load Service (spec.md
// §4.8): the single entrypoint behind the widget, discriminating its
// response by processing_status so the caller knows whether to render
// questions now or poll a job id.
package checkandload

import (
	"context"
	"errors"
	"math/rand"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/the-monkeys/blogqa/constants"
	"github.com/the-monkeys/blogqa/internal/apperr"
	"github.com/the-monkeys/blogqa/internal/content"
	"github.com/the-monkeys/blogqa/internal/metadata"
	"github.com/the-monkeys/blogqa/internal/publisher"
	"github.com/the-monkeys/blogqa/internal/queue"
	"github.com/the-monkeys/blogqa/logger"
)

var log = logger.ZapForService("checkandload")

// Result is the discriminated response of spec.md §4.8.
type Result struct {
	ProcessingStatus string             `json:"processing_status"`
	JobID            string             `json:"job_id,omitempty"`
	Blog             *content.Blog      `json:"blog,omitempty"`
	Questions        []content.Question `json:"questions,omitempty"`
	Healed           bool               `json:"healed,omitempty"`
}

// Service wires the four stores the algorithm touches: Content (fast
// path + blog info), Queue (state probe/transition), Metadata (threshold
// counter), Publisher (slot reservation), plus the optional read-through
// Redis cache (SPEC_FULL.md §2 C8) in front of the fast path.
type Service struct {
	content   content.Store
	queue     queue.Store
	metadata  metadata.Store
	publisher publisher.Store
	cache     *Cache
	rand      *rand.Rand
}

// New wires a Service. rnd may be nil, in which case a package-level
// default source is used — tests that need deterministic shuffling pass
// their own rand.Rand.
func New(contentStore content.Store, queueStore queue.Store, metadataStore metadata.Store, publisherStore publisher.Store, rnd *rand.Rand) *Service {
	return &Service{content: contentStore, queue: queueStore, metadata: metadataStore, publisher: publisherStore, rand: rnd}
}

// WithCache attaches the read-through cache. Calling this is optional —
// a Service without a cache simply always falls through to the Content
// Store, which remains the source of truth.
func (s *Service) WithCache(cache *Cache) *Service {
	s.cache = cache
	return s
}

// CheckAndLoad implements spec.md §4.8's algorithm for a single
// normalized, domain/whitelist-validated URL and its resolved publisher.
// The caller (the Edge API, via internal/auth.Service.ResolvePublisher
// and ValidateURL — NOT Admit) is responsible for resolving the
// publisher and validating the URL; it must NOT reserve a quota slot
// first, since this service's own decisions (the threshold gate, the
// fast path) determine whether a slot is ever reserved at all.
func (s *Service) CheckAndLoad(ctx context.Context, url string, pub *publisher.Publisher) (*Result, error) {
	// 1. Fast path, read-through cache first.
	if cached, ok := s.cache.Get(ctx, url); ok {
		shuffled := shuffle(cached.Questions, s.rand)
		return &Result{ProcessingStatus: constants.ProcessingStatusReady, Blog: cached.Blog, Questions: shuffled}, nil
	}

	questions, err := s.content.GetQuestions(ctx, url, 0)
	if err != nil {
		return nil, apperr.Internal("CHECK_AND_LOAD_FAST_PATH", "cannot read questions", err)
	}
	if len(questions) > 0 {
		blog, err := s.content.GetBlog(ctx, url)
		if err != nil {
			return nil, apperr.Internal("CHECK_AND_LOAD_BLOG", "cannot read blog", err)
		}
		result := &Result{ProcessingStatus: constants.ProcessingStatusReady, Blog: blog, Questions: questions}
		s.cache.Set(ctx, url, result)
		return &Result{ProcessingStatus: constants.ProcessingStatusReady, Blog: blog, Questions: shuffle(questions, s.rand)}, nil
	}

	// 2. State probe.
	entry, err := s.queue.GetByURL(ctx, url)
	if err != nil {
		if !errors.Is(err, queue.ErrNotFound) {
			return nil, apperr.Internal("CHECK_AND_LOAD_PROBE", "cannot read queue entry", err)
		}
		entry = nil
	}

	// 3. Branch.
	if entry == nil {
		return s.admitNew(ctx, url, pub)
	}
	return s.branchOnEntry(ctx, url, pub, entry)
}

// branchOnEntry implements the status-keyed branch of spec.md §4.8 step
// 3, shared by the "entry already exists" path and the "lost the
// unique-constraint race, re-read and continue" path inside admitNew.
func (s *Service) branchOnEntry(ctx context.Context, url string, pub *publisher.Publisher, entry *queue.Entry) (*Result, error) {
	switch entry.Status {
	case queue.StatusQueued, queue.StatusProcessing:
		return &Result{ProcessingStatus: string(entry.Status), JobID: entry.CurrentJobID}, nil
	case queue.StatusRetry:
		return &Result{ProcessingStatus: constants.ProcessingStatusRetry, JobID: entry.CurrentJobID}, nil
	case queue.StatusFailed:
		return s.requeueAndReserve(ctx, url, pub, entry, false)
	case queue.StatusCompleted:
		// Content Store has no questions (checked above) while the queue
		// says completed: an inconsistency the spec calls out explicitly.
		return s.requeueAndReserve(ctx, url, pub, entry, true)
	default:
		return nil, apperr.Internal("CHECK_AND_LOAD_UNKNOWN_STATUS", "unrecognized queue status", nil)
	}
}

// admitNew handles the "No entry" branch: create the queue entry, apply
// the per-URL request threshold gate, and reserve a slot only once the
// threshold is met.
func (s *Service) admitNew(ctx context.Context, url string, pub *publisher.Publisher) (*Result, error) {
	entry, created, err := s.queue.GetOrCreate(ctx, url, pub.ID, false)
	if err != nil {
		return nil, apperr.Internal("CHECK_AND_LOAD_CREATE", "cannot create queue entry", err)
	}
	if !created {
		// Lost the unique-constraint race; re-read and continue at step
		// (4) by re-running the branch against what is actually there now.
		return s.branchOnEntry(ctx, url, pub, entry)
	}

	count, err := s.metadata.IncrementAndGetCount(ctx, url, pub.ID)
	if err != nil {
		return nil, apperr.Internal("CHECK_AND_LOAD_METADATA", "cannot increment metadata counter", err)
	}

	if count < pub.Config.EffectiveRequestThreshold() {
		// Below threshold: this entry stays queued without a reservation.
		// Later requests for the same URL find it queued and return that
		// status without counting or reserving; a worker can still lease it.
		return &Result{ProcessingStatus: constants.ProcessingStatusQueued, JobID: entry.CurrentJobID}, nil
	}

	if err := s.publisher.ReserveBlogSlot(ctx, pub.ID); err != nil {
		if _, delErr := s.queue.DeleteIfQueued(ctx, url); delErr != nil {
			return nil, apperr.Internal("CHECK_AND_LOAD_ROLLBACK", "cannot roll back queue entry after failed reservation", delErr)
		}
		return nil, err
	}
	if err := s.markReserved(ctx, url); err != nil {
		return nil, apperr.Internal("CHECK_AND_LOAD_MARK_RESERVED", "cannot record reservation on queue entry", err)
	}

	return &Result{ProcessingStatus: constants.ProcessingStatusQueued, JobID: entry.CurrentJobID}, nil
}

// markReserved records that the entry currently `queued` for url has an
// actual Publisher Store slot backing it, so JobsCancelHandler knows to
// give that slot back (and only that slot) if the job is later canceled.
func (s *Service) markReserved(ctx context.Context, url string) error {
	queued := queue.StatusQueued
	_, err := s.queue.Transition(ctx, url, &queued, queue.StatusQueued, bson.M{"reserved": true})
	return err
}

// requeueAndReserve implements the `failed` and completed-but-empty
// branches: requeue_failed, then reserve a slot, rolling the entry back
// to failed if the reservation does not succeed.
func (s *Service) requeueAndReserve(ctx context.Context, url string, pub *publisher.Publisher, entry *queue.Entry, healed bool) (*Result, error) {
	if healed {
		// Force the entry into `failed` first so requeue_failed's
		// precondition (status=failed) is satisfied for this inconsistency
		// case too.
		if _, err := s.queue.Transition(ctx, url, &entry.Status, queue.StatusFailed, nil); err != nil {
			return nil, apperr.Internal("CHECK_AND_LOAD_HEAL", "cannot transition inconsistent entry to failed", err)
		}
	}

	requeued, err := s.queue.RequeueFailed(ctx, url, true)
	if err != nil {
		return nil, apperr.Internal("CHECK_AND_LOAD_REQUEUE", "cannot requeue failed entry", err)
	}
	if requeued == nil {
		return nil, apperr.Conflict("REQUEUE_RACE", "entry is no longer in failed state")
	}

	if err := s.publisher.ReserveBlogSlot(ctx, pub.ID); err != nil {
		failedStatus := queue.StatusQueued
		if _, tErr := s.queue.Transition(ctx, url, &failedStatus, queue.StatusFailed, nil); tErr != nil {
			return nil, apperr.Internal("CHECK_AND_LOAD_REQUEUE_ROLLBACK", "cannot roll back requeue after failed reservation", tErr)
		}
		return nil, err
	}
	if err := s.markReserved(ctx, url); err != nil {
		return nil, apperr.Internal("CHECK_AND_LOAD_MARK_RESERVED", "cannot record reservation on queue entry", err)
	}

	return &Result{ProcessingStatus: constants.ProcessingStatusQueued, JobID: requeued.CurrentJobID, Healed: healed}, nil
}

// shuffle returns an unbiased Fisher-Yates shuffled copy of qs (spec.md
// §4.8 step 1: "shuffle the list (unbiased)").
func shuffle(qs []content.Question, rnd *rand.Rand) []content.Question {
	out := make([]content.Question, len(qs))
	copy(out, qs)

	swap := func(i, j int) { out[i], out[j] = out[j], out[i] }
	if rnd != nil {
		rnd.Shuffle(len(out), swap)
	} else {
		rand.Shuffle(len(out), swap)
	}
	return out
}
