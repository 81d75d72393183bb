package checkandload

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/the-monkeys/blogqa/constants"
	"github.com/the-monkeys/blogqa/internal/content"
	"github.com/the-monkeys/blogqa/internal/metadata"
	"github.com/the-monkeys/blogqa/internal/publisher"
	"github.com/the-monkeys/blogqa/internal/queue"
)

func newHarness(t *testing.T, dailyLimit, requestThreshold int) (*Service, *publisher.Publisher, *publisher.FakeStore) {
	t.Helper()
	pubStore := publisher.NewFakeStore()
	pub := &publisher.Publisher{
		Name:          "Acme",
		PrimaryDomain: "acme.example",
		APIKey:        "pub_abc",
		Config:        publisher.Config{DailyBlogLimit: dailyLimit, RequestThreshold: requestThreshold, QuestionsPerBlog: 5},
	}
	require.NoError(t, pubStore.Create(context.Background(), pub))

	svc := New(content.NewFakeStore(), queue.NewFakeStore(), metadata.NewFakeStore(), pubStore, nil)
	return svc, pub, pubStore
}

func TestCheckAndLoadColdBlogHappyPath(t *testing.T) {
	svc, pub, pubStore := newHarness(t, 100, 1)

	result, err := svc.CheckAndLoad(context.Background(), "https://acme.example/post-a", pub)
	require.NoError(t, err)
	assert.Equal(t, constants.ProcessingStatusQueued, result.ProcessingStatus)

	got, err := pubStore.GetByID(context.Background(), pub.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Usage.InFlightReservations)

	qstore := svc.queue.(*queue.FakeStore)
	entry, err := qstore.GetByURL(context.Background(), "https://acme.example/post-a")
	require.NoError(t, err)
	assert.True(t, entry.Reserved, "entry backed by an actual reservation must be marked as such")
}

func TestCheckAndLoadReturnsReadyFromFastPath(t *testing.T) {
	svc, pub, _ := newHarness(t, 100, 1)
	contentStore := svc.content.(*content.FakeStore)

	blogID, err := contentStore.SaveBlog(context.Background(), "https://acme.example/post-a", "Title", "Author", "body", "en", 100)
	require.NoError(t, err)
	require.NoError(t, contentStore.SaveQuestions(context.Background(), blogID, "https://acme.example/post-a", []content.QuestionInput{
		{Question: "why?", Answer: "because"},
	}))

	result, err := svc.CheckAndLoad(context.Background(), "https://acme.example/post-a", pub)
	require.NoError(t, err)
	assert.Equal(t, constants.ProcessingStatusReady, result.ProcessingStatus)
	require.Len(t, result.Questions, 1)
	assert.Equal(t, "Title", result.Blog.Title)
}

func TestCheckAndLoadBelowThresholdDoesNotReserve(t *testing.T) {
	svc, pub, pubStore := newHarness(t, 100, 3)

	result, err := svc.CheckAndLoad(context.Background(), "https://acme.example/post-a", pub)
	require.NoError(t, err)
	assert.Equal(t, constants.ProcessingStatusQueued, result.ProcessingStatus)

	got, err := pubStore.GetByID(context.Background(), pub.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Usage.InFlightReservations)

	qstore := svc.queue.(*queue.FakeStore)
	entry, err := qstore.GetByURL(context.Background(), "https://acme.example/post-a")
	require.NoError(t, err)
	assert.False(t, entry.Reserved, "an entry queued below threshold must not claim a reservation it never took")
}

func TestCheckAndLoadReturnsQueuedWithoutReReserving(t *testing.T) {
	svc, pub, pubStore := newHarness(t, 100, 1)

	_, err := svc.CheckAndLoad(context.Background(), "https://acme.example/post-a", pub)
	require.NoError(t, err)

	_, err = svc.CheckAndLoad(context.Background(), "https://acme.example/post-a", pub)
	require.NoError(t, err)

	got, err := pubStore.GetByID(context.Background(), pub.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Usage.InFlightReservations)
}

func TestCheckAndLoadRequeuesFailedEntry(t *testing.T) {
	svc, pub, pubStore := newHarness(t, 100, 1)
	qstore := svc.queue.(*queue.FakeStore)

	entry, _, err := qstore.GetOrCreate(context.Background(), "https://acme.example/post-a", pub.ID, true)
	require.NoError(t, err)
	_, err = qstore.Transition(context.Background(), entry.URL, &entry.Status, queue.StatusProcessing, nil)
	require.NoError(t, err)
	processing := queue.StatusProcessing
	_, err = qstore.Transition(context.Background(), entry.URL, &processing, queue.StatusFailed, nil)
	require.NoError(t, err)

	result, err := svc.CheckAndLoad(context.Background(), "https://acme.example/post-a", pub)
	require.NoError(t, err)
	assert.Equal(t, constants.ProcessingStatusQueued, result.ProcessingStatus)

	got, err := pubStore.GetByID(context.Background(), pub.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Usage.InFlightReservations)
}

func TestCheckAndLoadDailyLimitExhaustedSurfacesError(t *testing.T) {
	svc, pub, _ := newHarness(t, 0, 1)

	_, err := svc.CheckAndLoad(context.Background(), "https://acme.example/post-a", pub)
	require.Error(t, err)

	qstore := svc.queue.(*queue.FakeStore)
	_, err = qstore.GetByURL(context.Background(), "https://acme.example/post-a")
	assert.ErrorIs(t, err, queue.ErrNotFound, "queue entry should be rolled back after a failed reservation")
}
