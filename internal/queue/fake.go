package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/the-monkeys/blogqa/constants"
)

// FakeStore is an in-memory Store used by worker/orchestrator/httpapi tests
// that need the Queue Store's exact state-machine semantics without a live
// MongoDB deployment. It is not a mock of the wire protocol, just a second,
// simpler implementation of the same contract.
type FakeStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
	seq     int64
}

// NewFakeStore returns an empty in-memory Queue Store.
func NewFakeStore() *FakeStore {
	return &FakeStore{entries: make(map[string]*Entry)}
}

func (f *FakeStore) clone(e *Entry) *Entry {
	cp := *e
	return &cp
}

func (f *FakeStore) GetOrCreate(_ context.Context, url string, publisherID int64, reserved bool) (*Entry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if existing, ok := f.entries[url]; ok {
		return f.clone(existing), false, nil
	}

	f.seq++
	now := time.Now().UTC().Add(time.Duration(f.seq) * time.Nanosecond)
	entry := &Entry{
		URL:                  url,
		PublisherID:          publisherID,
		Status:               StatusQueued,
		CurrentJobID:         uuid.NewString(),
		HeartbeatIntervalSec: constants.DefaultHeartbeatIntervalSeconds,
		CreatedAt:            now,
		UpdatedAt:            now,
		Reserved:             reserved,
	}
	f.entries[url] = entry
	return f.clone(entry), true, nil
}

func (f *FakeStore) GetByURL(_ context.Context, url string) (*Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[url]
	if !ok {
		return nil, ErrNotFound
	}
	return f.clone(e), nil
}

// GetByJobID mirrors mongoStore.GetByJobID for tests.
func (f *FakeStore) GetByJobID(_ context.Context, jobID string) (*Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.CurrentJobID == jobID {
			return f.clone(e), nil
		}
	}
	return nil, ErrNotFound
}

func (f *FakeStore) Transition(_ context.Context, url string, from *Status, to Status, updates bson.M) (*Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[url]
	if !ok {
		return nil, nil
	}
	if from != nil && e.Status != *from {
		return nil, nil
	}

	e.Status = to
	e.UpdatedAt = time.Now().UTC()
	applyUpdates(e, updates)
	return f.clone(e), nil
}

func (f *FakeStore) RequeueFailed(_ context.Context, url string, resetAttempts bool) (*Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[url]
	if !ok || e.Status != StatusFailed {
		return nil, nil
	}

	now := time.Now().UTC()
	e.Status = StatusQueued
	e.CurrentJobID = uuid.NewString()
	e.LastError = ""
	e.ErrorType = ""
	e.WorkerID = ""
	e.StartedAt = nil
	e.HeartbeatAt = nil
	e.CompletedAt = nil
	e.UpdatedAt = now
	e.LastReprocessedAt = &now
	e.ReprocessedCount++
	e.Reserved = false
	if resetAttempts {
		e.AttemptCount = 0
	}
	return f.clone(e), nil
}

func (f *FakeStore) WorkerLease(_ context.Context, workerID string) (*Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var candidates []*Entry
	for _, e := range f.entries {
		if e.Status == StatusQueued || e.Status == StatusRetry {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].URL < candidates[j].URL
	})

	e := candidates[0]
	now := time.Now().UTC()
	e.Status = StatusProcessing
	e.WorkerID = workerID
	e.StartedAt = &now
	e.HeartbeatAt = &now
	e.UpdatedAt = now
	e.AttemptCount++
	return f.clone(e), nil
}

func (f *FakeStore) Heartbeat(_ context.Context, url, workerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[url]
	if !ok || e.Status != StatusProcessing || e.WorkerID != workerID {
		return false, nil
	}
	now := time.Now().UTC()
	e.HeartbeatAt = &now
	return true, nil
}

func (f *FakeStore) DeleteIfQueued(_ context.Context, url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[url]
	if !ok || e.Status != StatusQueued {
		return false, nil
	}
	delete(f.entries, url)
	return true, nil
}

// ListStaleProcessing mirrors mongoStore.ListStaleProcessing for tests:
// entries stuck in `processing` whose heartbeat predates olderThan.
func (f *FakeStore) ListStaleProcessing(_ context.Context, olderThan time.Time) ([]*Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var stale []*Entry
	for _, e := range f.entries {
		if e.Status != StatusProcessing {
			continue
		}
		if e.HeartbeatAt != nil && e.HeartbeatAt.Before(olderThan) {
			stale = append(stale, f.clone(e))
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].URL < stale[j].URL })
	return stale, nil
}

// CountByStatus mirrors mongoStore.CountByStatus for tests.
func (f *FakeStore) CountByStatus(_ context.Context) (map[Status]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := make(map[Status]int)
	for _, e := range f.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func applyUpdates(e *Entry, updates bson.M) {
	for k, v := range updates {
		switch k {
		case "last_error":
			e.LastError, _ = v.(string)
		case "error_type":
			e.ErrorType, _ = v.(string)
		case "completed_at":
			if t, ok := v.(time.Time); ok {
				e.CompletedAt = &t
			}
		case "heartbeat_at":
			if t, ok := v.(time.Time); ok {
				e.HeartbeatAt = &t
			}
		case "worker_id":
			e.WorkerID, _ = v.(string)
		case "was_previously_completed":
			e.WasPreviouslyCompleted, _ = v.(bool)
		case "reserved":
			e.Reserved, _ = v.(bool)
		}
	}
}
