package audit

import (
	"context"
	"sync"
)

// FakeStore is an in-memory append-only Store for worker/orchestrator
// tests, mirroring the real store's insert-only contract.
type FakeStore struct {
	mu      sync.Mutex
	entries []*Entry
}

// NewFakeStore returns an empty in-memory Audit Store.
func NewFakeStore() *FakeStore { return &FakeStore{} }

func (f *FakeStore) Append(_ context.Context, entry *Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *entry
	f.entries = append(f.entries, &cp)
	return nil
}

func (f *FakeStore) All() []*Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Entry, len(f.entries))
	copy(out, f.entries)
	return out
}

func (f *FakeStore) ListByURL(_ context.Context, url string, limit int64) ([]*Entry, error) {
	return f.filter(limit, func(e *Entry) bool { return e.URL == url }), nil
}

func (f *FakeStore) ListByPublisher(_ context.Context, publisherID int64, limit int64) ([]*Entry, error) {
	return f.filter(limit, func(e *Entry) bool { return e.PublisherID == publisherID }), nil
}

func (f *FakeStore) ListByStatus(_ context.Context, status Status, limit int64) ([]*Entry, error) {
	return f.filter(limit, func(e *Entry) bool { return e.Status == status }), nil
}

func (f *FakeStore) ListByJobID(_ context.Context, jobID string) ([]*Entry, error) {
	return f.filter(0, func(e *Entry) bool { return e.JobID == jobID }), nil
}

func (f *FakeStore) ListRecent(_ context.Context, limit int64) ([]*Entry, error) {
	return f.filter(limit, func(*Entry) bool { return true }), nil
}

func (f *FakeStore) filter(limit int64, pred func(*Entry) bool) []*Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*Entry
	for i := len(f.entries) - 1; i >= 0; i-- {
		if pred(f.entries[i]) {
			cp := *f.entries[i]
			out = append(out, &cp)
			if limit > 0 && int64(len(out)) >= limit {
				break
			}
		}
	}
	return out
}
