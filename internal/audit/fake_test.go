package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendIsInsertOnly(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, &Entry{URL: "https://example.com/a", Status: StatusCompleted, CompletedAt: time.Now()}))
	require.NoError(t, store.Append(ctx, &Entry{URL: "https://example.com/a", Status: StatusFailed, CompletedAt: time.Now()}))

	entries, err := store.ListByURL(ctx, "https://example.com/a", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "both attempts for the same url must be retained")
}

func TestListRecentOrdersNewestFirst(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, &Entry{URL: "a", JobID: "job-1"}))
	require.NoError(t, store.Append(ctx, &Entry{URL: "b", JobID: "job-2"}))

	entries, err := store.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "job-2", entries[0].JobID)
	assert.Equal(t, "job-1", entries[1].JobID)
}

func TestListByStatusFilters(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, &Entry{URL: "a", Status: StatusCompleted}))
	require.NoError(t, store.Append(ctx, &Entry{URL: "b", Status: StatusFailed}))

	failed, err := store.ListByStatus(ctx, StatusFailed, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].URL)
}
