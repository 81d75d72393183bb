package queue

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()

	first, created, err := store.GetOrCreate(ctx, "https://example.com/post-a", 1, true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, StatusQueued, first.Status)

	second, created, err := store.GetOrCreate(ctx, "https://example.com/post-a", 1, true)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.URL, second.URL)
}

func TestWorkerLeaseIsFIFOAndExclusive(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()

	_, _, err := store.GetOrCreate(ctx, "https://example.com/post-a", 1, true)
	require.NoError(t, err)
	_, _, err = store.GetOrCreate(ctx, "https://example.com/post-b", 1, true)
	require.NoError(t, err)

	first, err := store.WorkerLease(ctx, "worker-1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/post-a", first.URL)
	assert.Equal(t, StatusProcessing, first.Status)
	assert.Equal(t, 1, first.AttemptCount)

	second, err := store.WorkerLease(ctx, "worker-2")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/post-b", second.URL)

	none, err := store.WorkerLease(ctx, "worker-3")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestWorkerLeaseNeverDoubleLeasesConcurrently(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		_, _, err := store.GetOrCreate(ctx, "https://example.com/post-"+string(rune('a'+i)), 1, true)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	leased := make([]string, 0, 20)
	var mu sync.Mutex
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			entry, err := store.WorkerLease(ctx, "worker")
			if err != nil || entry == nil {
				return
			}
			mu.Lock()
			leased = append(leased, entry.URL)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, url := range leased {
		assert.False(t, seen[url], "url %s leased more than once", url)
		seen[url] = true
	}
}

func TestTransitionHonorsPrecondition(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()
	_, _, err := store.GetOrCreate(ctx, "https://example.com/post-a", 1, true)
	require.NoError(t, err)

	from := StatusProcessing
	none, err := store.Transition(ctx, "https://example.com/post-a", &from, StatusCompleted, nil)
	require.NoError(t, err)
	assert.Nil(t, none, "transition should not apply when precondition fails")

	fromQueued := StatusQueued
	updated, err := store.Transition(ctx, "https://example.com/post-a", &fromQueued, StatusProcessing, nil)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, StatusProcessing, updated.Status)
}

func TestRequeueFailedOnlyAppliesToFailed(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()
	_, _, err := store.GetOrCreate(ctx, "https://example.com/post-a", 1, true)
	require.NoError(t, err)

	none, err := store.RequeueFailed(ctx, "https://example.com/post-a", true)
	require.NoError(t, err)
	assert.Nil(t, none)

	fromQueued := StatusQueued
	_, err = store.Transition(ctx, "https://example.com/post-a", &fromQueued, StatusFailed, nil)
	require.NoError(t, err)

	requeued, err := store.RequeueFailed(ctx, "https://example.com/post-a", true)
	require.NoError(t, err)
	require.NotNil(t, requeued)
	assert.Equal(t, StatusQueued, requeued.Status)
	assert.Equal(t, 1, requeued.ReprocessedCount)
	assert.Equal(t, 0, requeued.AttemptCount)
}

func TestHeartbeatRequiresMatchingWorker(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()
	_, _, err := store.GetOrCreate(ctx, "https://example.com/post-a", 1, true)
	require.NoError(t, err)

	_, err = store.WorkerLease(ctx, "worker-1")
	require.NoError(t, err)

	ok, err := store.Heartbeat(ctx, "https://example.com/post-a", "worker-2")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Heartbeat(ctx, "https://example.com/post-a", "worker-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeleteIfQueuedNeverTouchesLeased(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()
	_, _, err := store.GetOrCreate(ctx, "https://example.com/post-a", 1, true)
	require.NoError(t, err)
	_, err = store.WorkerLease(ctx, "worker-1")
	require.NoError(t, err)

	deleted, err := store.DeleteIfQueued(ctx, "https://example.com/post-a")
	require.NoError(t, err)
	assert.False(t, deleted)
}
