package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tasteapp/taste-index/internal/domain"
	"github.com/tasteapp/taste-index/internal/store"
)

const accountSelect = `
	SELECT address, total_earned, post_count, last_active, display_name, avatar_ref, created_at
	FROM accounts`

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		a           domain.Account
		earned      string
		lastActive  string
		displayName sql.NullString
		avatarRef   sql.NullString
		createdAt   string
	)
	if err := row.Scan(&a.Address, &earned, &a.PostCount, &lastActive,
		&displayName, &avatarRef, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if a.TotalEarned, err = domain.ParsePadded(earned); err != nil {
		return nil, fmt.Errorf("account %s: parse total_earned: %w", a.Address, err)
	}
	if a.LastActive, err = parseTime(lastActive); err != nil {
		return nil, fmt.Errorf("account %s: parse last_active: %w", a.Address, err)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("account %s: parse created_at: %w", a.Address, err)
	}
	a.DisplayName = displayName.String
	a.AvatarRef = avatarRef.String
	return &a, nil
}

func upsertAccount(ctx context.Context, tx *sql.Tx, a *domain.Account) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (address, total_earned, post_count, last_active, last_active_ns,
			display_name, avatar_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (address) DO UPDATE SET
			total_earned = excluded.total_earned,
			post_count = excluded.post_count,
			last_active = excluded.last_active,
			last_active_ns = excluded.last_active_ns,
			display_name = excluded.display_name,
			avatar_ref = excluded.avatar_ref`,
		a.Address, a.TotalEarned.Padded(), a.PostCount, formatTime(a.LastActive), a.LastActive.UnixNano(),
		nullString(a.DisplayName), nullString(a.AvatarRef), formatTime(a.CreatedAt),
	)
	return err
}

// GetAccount retrieves the account for a normalized address.
func (s *Store) GetAccount(ctx context.Context, address string) (*domain.Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx, accountSelect+` WHERE address = ?`, address))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrAccountNotFound.WithDetails(map[string]string{"id": address})
	}
	if err != nil {
		return nil, classify(err)
	}
	return a, nil
}

// UpdateProfile applies a profile edit, creating the account if needed.
func (s *Store) UpdateProfile(ctx context.Context, address string, update domain.ProfileUpdate, now time.Time) (*domain.Account, error) {
	var acct *domain.Account
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		acct, err = scanAccount(tx.QueryRowContext(ctx, accountSelect+` WHERE address = ?`, address))
		if errors.Is(err, sql.ErrNoRows) {
			acct = domain.NewAccount(address, now)
		} else if err != nil {
			return err
		}

		acct.ApplyProfile(update, now)
		return upsertAccount(ctx, tx, acct)
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// Leaderboard returns accounts by total earned descending, then address.
func (s *Store) Leaderboard(ctx context.Context, limit int, activeSince time.Time) ([]*domain.Account, error) {
	if limit <= 0 {
		return []*domain.Account{}, nil
	}

	query := accountSelect
	var args []any
	if !activeSince.IsZero() {
		query += ` WHERE last_active_ns >= ?`
		args = append(args, activeSince.UnixNano())
	}
	query += ` ORDER BY total_earned DESC, address ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0, limit)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, classify(err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return accounts, nil
}

// IsProcessed reports whether an event id is in the processed-event set.
func (s *Store) IsProcessed(ctx context.Context, id domain.EventID) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processed_events WHERE event_key = ?`, id.Key()).Scan(&n)
	if err != nil {
		return false, classify(err)
	}
	return n > 0, nil
}
