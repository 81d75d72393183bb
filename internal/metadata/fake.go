package metadata

import (
	"context"
	"sync"
	"time"
)

// FakeStore is an in-memory Store used by Check-and-Load Service tests.
type FakeStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewFakeStore returns an empty in-memory Metadata Store.
func NewFakeStore() *FakeStore {
	return &FakeStore{records: make(map[string]*Record)}
}

func (f *FakeStore) IncrementAndGetCount(_ context.Context, url string, publisherID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now().UTC()
	r, ok := f.records[url]
	if !ok {
		r = &Record{URL: url, PublisherID: publisherID, FirstRequestedAt: now, CreatedAt: now}
		f.records[url] = r
	}
	r.RequestCount++
	r.LastRequestedAt = now
	r.UpdatedAt = now
	return r.RequestCount, nil
}

func (f *FakeStore) GetCount(_ context.Context, url string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[url]
	if !ok {
		return 0, nil
	}
	return r.RequestCount, nil
}
