package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tasteapp/taste-index/internal/domain"
	"github.com/tasteapp/taste-index/internal/store"
)

// GetCheckpoint returns the event id stored under name, or the zero id if none.
func (s *Store) GetCheckpoint(ctx context.Context, name string) (domain.EventID, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT event_id FROM checkpoints WHERE name = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.EventID{}, nil
	}
	if err != nil {
		return domain.EventID{}, classify(err)
	}

	var id domain.EventID
	if err := id.UnmarshalText([]byte(raw)); err != nil {
		return domain.EventID{}, fmt.Errorf("checkpoint %s: %w", name, err)
	}
	return id, nil
}

// SetCheckpoint stores id under name.
func (s *Store) SetCheckpoint(ctx context.Context, name string, id domain.EventID) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO checkpoints (name, event_id) VALUES (?, ?)
			ON CONFLICT (name) DO UPDATE SET event_id = excluded.event_id`,
			name, id.String())
		return err
	})
}

// Stats counts posts, likes, accounts and processed events.
func (s *Store) Stats(ctx context.Context) (*store.Stats, error) {
	var stats store.Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM posts),
			(SELECT COUNT(*) FROM likes),
			(SELECT COUNT(*) FROM accounts),
			(SELECT COUNT(*) FROM processed_events)`).Scan(
		&stats.Posts, &stats.Likes, &stats.Accounts, &stats.ProcessedEvents)
	if err != nil {
		return nil, classify(err)
	}
	return &stats, nil
}
