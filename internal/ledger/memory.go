package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/tasteapp/taste-index/internal/domain"
)

// MemoryLedger is an append-only in-memory ledger.
type MemoryLedger struct {
	mu      sync.RWMutex
	facts   []domain.Fact
	seen    map[domain.EventID]struct{}
	changed chan struct{} // closed and replaced on every append
}

var _ Client = (*MemoryLedger)(nil)

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		seen:    make(map[domain.EventID]struct{}),
		changed: make(chan struct{}),
	}
}

// Append confirms facts. Event ids must be unique across the ledger.
func (l *MemoryLedger) Append(facts ...domain.Fact) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, f := range facts {
		if _, dup := l.seen[f.ID]; dup {
			return fmt.Errorf("append: event %s already confirmed", f.ID)
		}
	}
	for _, f := range facts {
		l.seen[f.ID] = struct{}{}
		l.facts = append(l.facts, f)
	}

	close(l.changed)
	l.changed = make(chan struct{})
	return nil
}

// Len returns the number of confirmed facts.
func (l *MemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.facts)
}

// FactsAfter implements Client.
func (l *MemoryLedger) FactsAfter(ctx context.Context, after domain.EventID, limit int) ([]domain.Fact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return factsAfter(l.facts, after, limit)
}

// Feed returns a feed that starts after the given event id.
func (l *MemoryLedger) Feed(after domain.EventID) (Feed, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pos := 0
	if !after.IsZero() {
		rest, err := factsAfter(l.facts, after, 0)
		if err != nil {
			return nil, err
		}
		pos = len(l.facts) - len(rest)
	}
	return &memoryFeed{ledger: l, pos: pos, closed: make(chan struct{})}, nil
}

type memoryFeed struct {
	ledger    *MemoryLedger
	pos       int
	closeOnce sync.Once
	closed    chan struct{}
}

func (f *memoryFeed) Next(ctx context.Context) (Delivery, error) {
	for {
		f.ledger.mu.RLock()
		if f.pos < len(f.ledger.facts) {
			fact := f.ledger.facts[f.pos]
			f.pos++
			f.ledger.mu.RUnlock()
			return Delivery{Fact: fact, Ack: noAck}, nil
		}
		changed := f.ledger.changed
		f.ledger.mu.RUnlock()

		select {
		case <-ctx.Done():
			return Delivery{}, ctx.Err()
		case <-f.closed:
			return Delivery{}, ErrClosed
		case <-changed:
		}
	}
}

func (f *memoryFeed) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}
