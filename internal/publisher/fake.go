package publisher

import (
	"context"
	"sync"
	"time"

	"github.com/the-monkeys/blogqa/internal/apperr"
)

// FakeStore is an in-memory Store implementation replicating the
// Postgres store's admission semantics (atomic day-bucket rollover +
// quota check), for package tests that need a Publisher Store without a
// live Postgres instance — the same pattern used by the Mongo-backed
// stores' FakeStore (internal/queue, internal/audit, internal/metadata,
// internal/content).
type FakeStore struct {
	mu       sync.Mutex
	byID     map[int64]*Publisher
	byAPIKey map[string]int64
	nextID   int64
}

// NewFakeStore builds an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		byID:     make(map[int64]*Publisher),
		byAPIKey: make(map[string]int64),
	}
}

func (s *FakeStore) Create(ctx context.Context, p *Publisher) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byAPIKey[p.APIKey]; exists {
		return apperr.Conflict("PUBLISHER_EXISTS", "a publisher with this api key already exists")
	}

	s.nextID++
	p.ID = s.nextID
	p.Active = true
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Usage.CurrentDayBucket == "" {
		p.Usage.CurrentDayBucket = now.Format("2006-01-02")
	}

	cp := *p
	s.byID[p.ID] = &cp
	s.byAPIKey[p.APIKey] = p.ID
	return nil
}

func (s *FakeStore) GetByAPIKey(ctx context.Context, apiKey string) (*Publisher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byAPIKey[apiKey]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeInvalidAPIKey, "publisher not found")
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *FakeStore) GetByID(ctx context.Context, id int64) (*Publisher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeInvalidAPIKey, "publisher not found")
	}
	cp := *p
	return &cp, nil
}

func (s *FakeStore) Update(ctx context.Context, p *Publisher) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[p.ID]
	if !ok {
		return apperr.NotFound(apperr.CodeInvalidAPIKey, "publisher not found")
	}
	p.Usage = existing.Usage
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	s.byID[p.ID] = &cp

	if existing.APIKey != p.APIKey {
		delete(s.byAPIKey, existing.APIKey)
		s.byAPIKey[p.APIKey] = p.ID
	}
	return nil
}

func (s *FakeStore) List(ctx context.Context) ([]*Publisher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Publisher, 0, len(s.byID))
	for _, p := range s.byID {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *FakeStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return apperr.NotFound(apperr.CodeInvalidAPIKey, "publisher not found")
	}
	delete(s.byID, id)
	delete(s.byAPIKey, p.APIKey)
	return nil
}

// ReserveBlogSlot replicates the Postgres store's single-statement
// day-bucket-rollover-plus-admission-check, applied here to the in-memory
// record under the store's mutex instead of a SQL CTE.
func (s *FakeStore) ReserveBlogSlot(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return apperr.NotFound(apperr.CodeInvalidAPIKey, "publisher not found")
	}

	today := time.Now().UTC().Format("2006-01-02")
	if p.Usage.CurrentDayBucket != today {
		p.Usage.BlogsProcessedToday = 0
		p.Usage.CurrentDayBucket = today
	}

	if !p.Active || p.Usage.BlogsProcessedToday+p.Usage.InFlightReservations >= int64(p.Config.DailyBlogLimit) {
		return apperr.ErrUsageLimitExceeded
	}

	p.Usage.InFlightReservations++
	return nil
}

func (s *FakeStore) ReleaseBlogSlot(ctx context.Context, id int64, processed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return apperr.NotFound(apperr.CodeInvalidAPIKey, "publisher not found")
	}

	if p.Usage.InFlightReservations > 0 {
		p.Usage.InFlightReservations--
	}
	if processed {
		p.Usage.BlogsProcessedToday++
		p.Usage.BlogsProcessedTotal++
	}
	return nil
}
