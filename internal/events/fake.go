package events

import (
	"context"
	"sync"
)

// FakePublisher records every BlogProcessed call for assertions, instead
// of touching a broker. It is safe for concurrent use, since several
// Worker Runtime loops can share one notifier.
type FakePublisher struct {
	mu     sync.Mutex
	Events []BlogProcessed
}

func (p *FakePublisher) BlogProcessed(ctx context.Context, event BlogProcessed) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
}

// All returns a snapshot of every event recorded so far.
func (p *FakePublisher) All() []BlogProcessed {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]BlogProcessed, len(p.Events))
	copy(out, p.Events)
	return out
}
