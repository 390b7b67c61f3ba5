package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tasteapp/taste-index/internal/aggregate"
	"github.com/tasteapp/taste-index/internal/domain"
	domainerrors "github.com/tasteapp/taste-index/internal/errors"
	"github.com/tasteapp/taste-index/internal/store"
)

// Apply writes m and its aggregate deltas in one immediate transaction.
func (s *Store) Apply(ctx context.Context, m domain.Mutation) (domain.ApplyResult, error) {
	if err := store.ValidateMutation(m); err != nil {
		return 0, err
	}

	var result domain.ApplyResult
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		result = 0

		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM processed_events WHERE event_key = ?`, m.EventID.Key()).Scan(&one)
		if err == nil {
			result = domain.AlreadyApplied
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		var applied bool
		switch m.Kind {
		case domain.FactPostMinted:
			applied, err = insertPost(ctx, tx, m.Post)
		case domain.FactPostLiked:
			applied, err = insertLike(ctx, tx, m.Like)
		}
		if err != nil {
			return err
		}

		result = domain.AlreadyApplied
		if applied {
			result = domain.Applied
			if err := applyDeltas(ctx, tx, aggregate.Plan(m), m.At); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO processed_events (event_key, event_id, kind, result, at)
			VALUES (?, ?, ?, ?, ?)`,
			m.EventID.Key(), m.EventID.String(), string(m.Kind), result.String(), formatTime(m.At))
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("mutation applied",
		"event_id", m.EventID.String(),
		"kind", m.Kind,
		"result", result.String(),
	)
	return result, nil
}

// insertPost inserts a post unless its post id is already indexed.
func insertPost(ctx context.Context, tx *sql.Tx, p *domain.Post) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO posts (post_id, creator, content_ref, image_ref, caption, category,
			rating, created_at, created_at_ns, like_count, event_key, event_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT (post_id) DO NOTHING`,
		p.PostID, p.Creator, p.ContentRef, nullString(p.ImageRef), p.Caption, string(p.Category),
		nullInt(p.Rating), formatTime(p.CreatedAt), p.CreatedAt.UnixNano(),
		p.EventID.Key(), p.EventID.String(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// insertLike inserts a like unless the (post, liker) pair already has one.
func insertLike(ctx context.Context, tx *sql.Tx, l *domain.Like) (bool, error) {
	var creator string
	err := tx.QueryRowContext(ctx, `SELECT creator FROM posts WHERE post_id = ?`, l.PostID).Scan(&creator)
	if errors.Is(err, sql.ErrNoRows) {
		return false, domainerrors.InvalidLikef("post %s is not indexed", l.PostID).
			WithDetails(map[string]string{"post_id": l.PostID})
	}
	if err != nil {
		return false, err
	}
	if creator != l.Creator {
		return false, domainerrors.InvalidLikef("post %s was created by %s, not %s", l.PostID, creator, l.Creator)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO likes (post_id, liker, creator, reward, created_at, event_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (post_id, liker) DO NOTHING`,
		l.PostID, l.Liker, l.Creator, l.Reward.String(), formatTime(l.CreatedAt), l.EventID.String(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// applyDeltas applies planned aggregate changes. Counters are incremented in
// SQL; account totals are read, updated and written back inside the same
// serialized transaction.
func applyDeltas(ctx context.Context, tx *sql.Tx, d aggregate.Deltas, at time.Time) error {
	if d.PostID != "" && d.Likes != 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE posts SET like_count = like_count + ? WHERE post_id = ?`, d.Likes, d.PostID); err != nil {
			return err
		}
	}

	for _, delta := range d.Accounts {
		acct, err := scanAccount(tx.QueryRowContext(ctx, accountSelect+` WHERE address = ?`, delta.Address))
		if errors.Is(err, sql.ErrNoRows) {
			acct = domain.NewAccount(delta.Address, at)
		} else if err != nil {
			return err
		}

		aggregate.ApplyAccount(acct, delta)
		if err := upsertAccount(ctx, tx, acct); err != nil {
			return err
		}
	}
	return nil
}
