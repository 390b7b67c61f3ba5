package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"

	"github.com/dgraph-io/badger/v4"

	"github.com/tasteapp/taste-index/internal/domain"
)

// GetPost retrieves a post by its ledger post id.
func (s *Store) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	var post domain.Post
	err := s.view(ctx, func(txn *badger.Txn) error {
		err := getJSON(txn, postKey(postID), &post)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFound(ErrPostNotFound, postID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPostsByCategory returns posts in category, newest first.
func (s *Store) ListPostsByCategory(ctx context.Context, category domain.Category, params PaginationParams) (*PaginatedResult[*domain.Post], error) {
	return s.listPosts(ctx, categoryIdxPrefix(category), params)
}

// ListPostsByCreator returns posts by a normalized address, newest first.
func (s *Store) ListPostsByCreator(ctx context.Context, address string, params PaginationParams) (*PaginatedResult[*domain.Post], error) {
	return s.listPosts(ctx, creatorIdxPrefix(address), params)
}

// ListRecentPosts returns all posts, newest first.
func (s *Store) ListRecentPosts(ctx context.Context, params PaginationParams) (*PaginatedResult[*domain.Post], error) {
	return s.listPosts(ctx, postsAllIdxPrefix, params)
}

// listPosts pages through a timestamp index. Forward iteration yields
// createdAt descending with ties in event id order; the cursor is the sort
// key of the last returned entry.
func (s *Store) listPosts(ctx context.Context, prefix string, params PaginationParams) (*PaginatedResult[*domain.Post], error) {
	params.Clamp(DefaultPageLimit, MaxPageLimit)

	after, err := DecodeCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	result := &PaginatedResult[*domain.Post]{Items: make([]*domain.Post, 0, params.Limit)}
	err = s.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		start := []byte(prefix)
		if after != "" {
			start = []byte(prefix + after)
		}

		var lastSortKey string
		for it.Seek(start); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			key := item.Key()
			if after != "" && bytes.Equal(key, start) {
				continue
			}

			if len(result.Items) == params.Limit {
				result.HasMore = true
				break
			}

			sortKey, err := parseTimestampIndexKey(key, prefix)
			if err != nil {
				return corrupt(item.KeyCopy(nil), err)
			}

			postID, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			var post domain.Post
			if err := getJSON(txn, postKey(string(postID)), &post); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					s.logger.Warn("post index entry without post", "post_id", string(postID), "index", prefix)
					continue
				}
				return err
			}

			result.Items = append(result.Items, &post)
			lastSortKey = sortKey
		}

		if result.HasMore {
			result.NextCursor = EncodeCursor(lastSortKey)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AllPosts iterates over every indexed post in post id order.
func (s *Store) AllPosts(ctx context.Context) iter.Seq2[*domain.Post, error] {
	return func(yield func(*domain.Post, error) bool) {
		var stopped bool
		err := s.view(ctx, func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(postPrefix)
			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Rewind(); it.Valid(); it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}
				var post domain.Post
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &post)
				})
				if err != nil {
					return corrupt(it.Item().KeyCopy(nil), err)
				}
				if !yield(&post, nil) {
					stopped = true
					return nil
				}
			}
			return nil
		})
		if err != nil && !stopped {
			yield(nil, err)
		}
	}
}

// GetLike retrieves the like for a (post, liker) pair.
func (s *Store) GetLike(ctx context.Context, postID, liker string) (*domain.Like, error) {
	var like domain.Like
	err := s.view(ctx, func(txn *badger.Txn) error {
		err := getJSON(txn, likeKey(postID, liker), &like)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFound(ErrLikeNotFound, postID+":"+liker)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &like, nil
}

// CountLikes counts the like records of a post.
func (s *Store) CountLikes(ctx context.Context, postID string) (int64, error) {
	var n int64
	err := s.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = likesForPostPrefix(postID)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
