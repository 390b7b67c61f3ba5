// Package ledger provides sources of ledger-confirmed facts.
//
// A Client answers "which facts were confirmed after event X" in ledger order
// and backs reconciliation. A Feed delivers facts as they are confirmed and
// backs live ingestion; a delivery is redelivered after a restart unless it
// was acknowledged.
package ledger

import (
	"context"
	"errors"

	"github.com/tasteapp/taste-index/internal/domain"
	domainerrors "github.com/tasteapp/taste-index/internal/errors"
)

// Client reads confirmed facts in ledger order.
type Client interface {
	// FactsAfter returns up to limit facts that follow after in ledger order.
	// The zero event id means "from the first fact".
	FactsAfter(ctx context.Context, after domain.EventID, limit int) ([]domain.Fact, error)
}

// Feed delivers facts as they are confirmed.
type Feed interface {
	// Next blocks until a fact is available or ctx ends.
	Next(ctx context.Context) (Delivery, error)
	Close() error
}

// Delivery is one fact handed out by a Feed.
type Delivery struct {
	Fact domain.Fact
	// Ack marks the delivery as handled so it is not redelivered.
	Ack func(ctx context.Context) error
}

// ErrUnknownEvent is returned when a start event id is not in the ledger.
var ErrUnknownEvent = domainerrors.NotFound("event not found in ledger")

// ErrClosed is returned by Next after the feed was closed.
var ErrClosed = errors.New("ledger feed closed")

// noAck is used by feeds whose position is tracked by the consumer.
func noAck(context.Context) error { return nil }

// factsAfter pages through an ordered fact slice.
func factsAfter(facts []domain.Fact, after domain.EventID, limit int) ([]domain.Fact, error) {
	start := 0
	if !after.IsZero() {
		start = -1
		for i, f := range facts {
			if f.ID == after {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return nil, ErrUnknownEvent.WithDetails(map[string]string{"event_id": after.String()})
		}
	}

	end := len(facts)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	out := make([]domain.Fact, end-start)
	copy(out, facts[start:end])
	return out, nil
}
