package store

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tasteapp/taste-index/internal/aggregate"
	"github.com/tasteapp/taste-index/internal/domain"
	domainerrors "github.com/tasteapp/taste-index/internal/errors"
)

// processedEvent is the value stored in the processed-event set.
type processedEvent struct {
	Kind   domain.FactKind `json:"kind"`
	Result string          `json:"result"`
	At     time.Time       `json:"at"`
}

// Apply writes m and its aggregate deltas in one transaction.
//
// The event id is checked and marked in the same transaction as the record
// write, so a crash leaves the event either fully applied or not applied.
// A conflicting concurrent transaction surfaces as a WriteConflict error and
// the caller retries.
func (s *Store) Apply(ctx context.Context, m domain.Mutation) (domain.ApplyResult, error) {
	if err := ValidateMutation(m); err != nil {
		return 0, err
	}

	var result domain.ApplyResult
	err := s.update(ctx, func(txn *badger.Txn) error {
		result = 0

		done, err := exists(txn, eventKey(m.EventID))
		if err != nil {
			return err
		}
		if done {
			result = domain.AlreadyApplied
			return nil
		}

		var applied bool
		switch m.Kind {
		case domain.FactPostMinted:
			applied, err = s.applyPost(txn, m.Post)
		case domain.FactPostLiked:
			applied, err = s.applyLike(txn, m.Like)
		}
		if err != nil {
			return err
		}

		result = domain.AlreadyApplied
		if applied {
			result = domain.Applied
			if err := applyDeltas(txn, aggregate.Plan(m), m.At); err != nil {
				return err
			}
		}

		return setJSON(txn, eventKey(m.EventID), processedEvent{
			Kind:   m.Kind,
			Result: result.String(),
			At:     m.At,
		})
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

// ValidateMutation rejects mutations that must never be materialized,
// including self-likes. Every Index implementation calls it before writing.
func ValidateMutation(m domain.Mutation) error {
	if err := m.EventID.Validate(); err != nil {
		return domainerrors.Validation(err.Error())
	}
	if !domain.ValidFactTime(m.At) {
		return domainerrors.Validationf("mutation %s time %s is outside the indexable range", m.EventID, m.At)
	}
	switch m.Kind {
	case domain.FactPostMinted:
		if m.Post == nil || m.Post.PostID == "" {
			return domainerrors.Validation("mint mutation without post")
		}
		if !domain.ValidFactTime(m.Post.CreatedAt) {
			return domainerrors.Validationf("post %s created_at %s is outside the indexable range", m.Post.PostID, m.Post.CreatedAt)
		}
	case domain.FactPostLiked:
		if m.Like == nil || m.Like.PostID == "" || m.Like.Liker == "" {
			return domainerrors.InvalidLike("like mutation without post or liker")
		}
		if m.Like.Liker == m.Like.Creator {
			return domainerrors.InvalidLikef("address %s cannot like its own post", m.Like.Liker)
		}
	default:
		return domainerrors.Validationf("unknown mutation kind %q", m.Kind)
	}
	return nil
}

// applyPost writes a new post and its index entries.
// It reports false when the post id is already indexed.
func (s *Store) applyPost(txn *badger.Txn, post *domain.Post) (bool, error) {
	found, err := exists(txn, postKey(post.PostID))
	if err != nil || found {
		return false, err
	}

	record := *post
	record.LikeCount = 0
	if err := setJSON(txn, postKey(record.PostID), &record); err != nil {
		return false, err
	}
	for _, key := range postIndexKeys(&record) {
		if err := txn.Set(key, []byte(record.PostID)); err != nil {
			return false, err
		}
	}
	return true, nil
}

// applyLike writes a new like. It reports false when the (post, liker) pair
// already has a like.
func (s *Store) applyLike(txn *badger.Txn, like *domain.Like) (bool, error) {
	var post domain.Post
	err := getJSON(txn, postKey(like.PostID), &post)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, domainerrors.InvalidLikef("post %s is not indexed", like.PostID).
			WithDetails(map[string]string{"post_id": like.PostID})
	}
	if err != nil {
		return false, err
	}
	if post.Creator != like.Creator {
		return false, domainerrors.InvalidLikef("post %s was created by %s, not %s", like.PostID, post.Creator, like.Creator)
	}

	found, err := exists(txn, likeKey(like.PostID, like.Liker))
	if err != nil || found {
		return false, err
	}
	return true, setJSON(txn, likeKey(like.PostID, like.Liker), like)
}

// applyDeltas applies planned aggregate changes to the post and accounts.
func applyDeltas(txn *badger.Txn, d aggregate.Deltas, at time.Time) error {
	if d.PostID != "" && d.Likes != 0 {
		var post domain.Post
		if err := getJSON(txn, postKey(d.PostID), &post); err != nil {
			return err
		}
		aggregate.ApplyPost(&post, d)
		if err := setJSON(txn, postKey(post.PostID), &post); err != nil {
			return err
		}
	}

	for _, delta := range d.Accounts {
		acct, err := loadAccount(txn, delta.Address)
		if errors.Is(err, badger.ErrKeyNotFound) {
			acct = domain.NewAccount(delta.Address, at)
		} else if err != nil {
			return err
		} else if err := txn.Delete(earnedIdxKey(acct)); err != nil {
			return err
		}

		aggregate.ApplyAccount(acct, delta)
		if err := putAccount(txn, acct); err != nil {
			return err
		}
	}
	return nil
}
