package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/the-monkeys/blogqa/internal/audit"
	"github.com/the-monkeys/blogqa/internal/events"
	"github.com/the-monkeys/blogqa/internal/orchestrator"
	"github.com/the-monkeys/blogqa/internal/publisher"
	"github.com/the-monkeys/blogqa/internal/queue"
)

// fakeJobRunner lets tests drive the Worker Runtime's bookkeeping
// without exercising a real crawl+LLM pipeline.
type fakeJobRunner struct {
	outcome *orchestrator.Outcome
	err     error
	calls   int
}

func (f *fakeJobRunner) Run(_ context.Context, _ string, _ *publisher.Publisher) (*orchestrator.Outcome, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

func newHarness(t *testing.T, orch jobRunner, opts ...Option) (*Runner, *queue.FakeStore, *publisher.FakeStore, *audit.FakeStore, *events.FakePublisher) {
	t.Helper()
	qs := queue.NewFakeStore()
	ps := publisher.NewFakeStore()
	as := audit.NewFakeStore()
	notifier := &events.FakePublisher{}

	pub := &publisher.Publisher{
		Name:          "Acme",
		PrimaryDomain: "acme.example",
		APIKey:        "pub_abc",
		Config:        publisher.Config{DailyBlogLimit: 10, RequestThreshold: 1, QuestionsPerBlog: 5},
	}
	require.NoError(t, ps.Create(context.Background(), pub))
	require.NoError(t, ps.ReserveBlogSlot(context.Background(), pub.ID))

	allOpts := append([]Option{WithNotifier(notifier)}, opts...)
	r := New("worker-test-1", qs, ps, as, orch, time.Millisecond, allOpts...)
	return r, qs, ps, as, notifier
}

func leaseOneEntry(t *testing.T, qs *queue.FakeStore, publisherID int64, url string) *queue.Entry {
	t.Helper()
	_, _, err := qs.GetOrCreate(context.Background(), url, publisherID, true)
	require.NoError(t, err)
	entry, err := qs.WorkerLease(context.Background(), "worker-test-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	return entry
}

func TestProcessLeasedEntrySuccessCompletesAndReleasesSlot(t *testing.T) {
	orch := &fakeJobRunner{outcome: &orchestrator.Outcome{
		BlogID: "blog-1", BlogTitle: "Title", ContentLength: 100,
		SummaryLength: 20, QuestionCount: 5, EmbeddingCount: 6,
	}}
	r, qs, ps, as, notifier := newHarness(t, orch)

	entry := leaseOneEntry(t, qs, 1, "https://acme.example/a")
	r.processLeasedEntry(context.Background(), entry)

	updated, err := qs.GetByURL(context.Background(), entry.URL)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusCompleted, updated.Status)

	entries := as.All()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.StatusCompleted, entries[0].Status)
	assert.Equal(t, 5, entries[0].QuestionCount)

	pub, err := ps.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pub.Usage.InFlightReservations)

	events := notifier.All()
	require.Len(t, events, 1)
	assert.Equal(t, string(queue.StatusCompleted), events[0].Status)
}

func TestProcessLeasedEntryRetryableFailureUnderBudgetGoesToRetry(t *testing.T) {
	orch := &fakeJobRunner{err: &orchestrator.Error{ErrorType: "LLM_UPSTREAM_ERROR", Retryable: true}}
	r, qs, _, as, notifier := newHarness(t, orch)

	entry := leaseOneEntry(t, qs, 1, "https://acme.example/b")
	r.processLeasedEntry(context.Background(), entry)

	updated, err := qs.GetByURL(context.Background(), entry.URL)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusRetry, updated.Status)

	entries := as.All()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.StatusFailed, entries[0].Status)

	// Retry is not a terminal failure — no event fires.
	assert.Empty(t, notifier.All())
}

func TestProcessLeasedEntryFatalFailureGoesStraightToFailed(t *testing.T) {
	orch := &fakeJobRunner{err: &orchestrator.Error{ErrorType: "CRAWL_CLIENT_ERROR", Retryable: false}}
	r, qs, ps, _, notifier := newHarness(t, orch)

	entry := leaseOneEntry(t, qs, 1, "https://acme.example/c")
	r.processLeasedEntry(context.Background(), entry)

	updated, err := qs.GetByURL(context.Background(), entry.URL)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusFailed, updated.Status)

	pub, err := ps.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pub.Usage.InFlightReservations)

	events := notifier.All()
	require.Len(t, events, 1)
	assert.Equal(t, string(queue.StatusFailed), events[0].Status)
	assert.Equal(t, "CRAWL_CLIENT_ERROR", events[0].ErrorType)
}

func TestProcessLeasedEntryRetryableFailureExhaustedBudgetFails(t *testing.T) {
	orch := &fakeJobRunner{err: &orchestrator.Error{ErrorType: "LLM_UPSTREAM_ERROR", Retryable: true}}
	r, qs, _, _, _ := newHarness(t, orch, WithMaxRetries(1))

	entry := leaseOneEntry(t, qs, 1, "https://acme.example/d")
	// The lease itself already counts as attempt 1 — at maxRetries=1 the
	// very first failure exhausts the budget.
	require.Equal(t, 1, entry.AttemptCount)

	r.processLeasedEntry(context.Background(), entry)

	updated, err := qs.GetByURL(context.Background(), entry.URL)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusFailed, updated.Status)
}

func TestReclaimStaleTransitionsOrphanedLeaseToRetry(t *testing.T) {
	r, qs, ps, _, _ := newHarness(t, &fakeJobRunner{})

	entry := leaseOneEntry(t, qs, 1, "https://acme.example/e")
	stale := time.Now().UTC().Add(-10 * time.Minute)
	processing := queue.StatusProcessing
	_, err := qs.Transition(context.Background(), entry.URL, &processing, queue.StatusProcessing, bson.M{"heartbeat_at": stale})
	require.NoError(t, err)

	n, err := r.ReclaimStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	updated, err := qs.GetByURL(context.Background(), entry.URL)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusRetry, updated.Status)

	pub, err := ps.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pub.Usage.InFlightReservations)
}

func TestRunStopsWhenContextCanceled(t *testing.T) {
	r, _, _, _, _ := newHarness(t, &fakeJobRunner{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
