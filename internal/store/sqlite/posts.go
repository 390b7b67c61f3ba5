package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"github.com/tasteapp/taste-index/internal/domain"
	"github.com/tasteapp/taste-index/internal/store"
)

const postSelect = `
	SELECT post_id, creator, content_ref, image_ref, caption, category, rating,
		created_at, like_count, event_id
	FROM posts`

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*domain.Post, error) {
	var (
		p         domain.Post
		imageRef  sql.NullString
		rating    sql.NullInt64
		category  string
		createdAt string
		eventID   string
	)
	if err := row.Scan(&p.PostID, &p.Creator, &p.ContentRef, &imageRef, &p.Caption,
		&category, &rating, &createdAt, &p.LikeCount, &eventID); err != nil {
		return nil, err
	}

	p.ImageRef = imageRef.String
	p.Category = domain.Category(category)
	if rating.Valid {
		r := int(rating.Int64)
		p.Rating = &r
	}

	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("post %s: parse created_at: %w", p.PostID, err)
	}
	if err := p.EventID.UnmarshalText([]byte(eventID)); err != nil {
		return nil, fmt.Errorf("post %s: parse event_id: %w", p.PostID, err)
	}
	return &p, nil
}

// GetPost retrieves a post by its ledger post id.
func (s *Store) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, postSelect+` WHERE post_id = ?`, postID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrPostNotFound.WithDetails(map[string]string{"id": postID})
	}
	if err != nil {
		return nil, classify(err)
	}
	return p, nil
}

// ListPostsByCategory returns posts in category, newest first.
func (s *Store) ListPostsByCategory(ctx context.Context, category domain.Category, params store.PaginationParams) (*store.PaginatedResult[*domain.Post], error) {
	return s.listPosts(ctx, "category = ?", []any{string(category)}, params)
}

// ListPostsByCreator returns posts by a normalized address, newest first.
func (s *Store) ListPostsByCreator(ctx context.Context, address string, params store.PaginationParams) (*store.PaginatedResult[*domain.Post], error) {
	return s.listPosts(ctx, "creator = ?", []any{address}, params)
}

// ListRecentPosts returns all posts, newest first.
func (s *Store) ListRecentPosts(ctx context.Context, params store.PaginationParams) (*store.PaginatedResult[*domain.Post], error) {
	return s.listPosts(ctx, "", nil, params)
}

// listPosts runs a keyset-paginated query ordered by created_at_ns DESC,
// event_key ASC, matching the badger index order.
func (s *Store) listPosts(ctx context.Context, filter string, args []any, params store.PaginationParams) (*store.PaginatedResult[*domain.Post], error) {
	params.Clamp(store.DefaultPageLimit, store.MaxPageLimit)

	after, err := store.DecodeCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	where := ""
	if filter != "" {
		where = " WHERE " + filter
	}
	if after != "" {
		createdNs, eventKey, err := store.ParsePostSortKey(after)
		if err != nil {
			return nil, err
		}
		clause := "(created_at_ns < ? OR (created_at_ns = ? AND event_key > ?))"
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, createdNs, createdNs, eventKey)
	}
	args = append(args, params.Limit+1)

	rows, err := s.db.QueryContext(ctx,
		postSelect+where+` ORDER BY created_at_ns DESC, event_key ASC LIMIT ?`, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	result := &store.PaginatedResult[*domain.Post]{Items: make([]*domain.Post, 0, params.Limit)}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, classify(err)
		}
		if len(result.Items) == params.Limit {
			result.HasMore = true
			break
		}
		result.Items = append(result.Items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	if result.HasMore {
		result.NextCursor = store.EncodeCursor(store.PostSortKey(result.Items[len(result.Items)-1]))
	}
	return result, nil
}

// AllPosts iterates over every indexed post in post id order.
func (s *Store) AllPosts(ctx context.Context) iter.Seq2[*domain.Post, error] {
	return func(yield func(*domain.Post, error) bool) {
		rows, err := s.db.QueryContext(ctx, postSelect+` ORDER BY post_id`)
		if err != nil {
			yield(nil, classify(err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanPost(rows)
			if err != nil {
				yield(nil, classify(err))
				return
			}
			if !yield(p, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, classify(err))
		}
	}
}

// GetLike retrieves the like for a (post, liker) pair.
func (s *Store) GetLike(ctx context.Context, postID, liker string) (*domain.Like, error) {
	var (
		l         domain.Like
		reward    string
		createdAt string
		eventID   string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT post_id, liker, creator, reward, created_at, event_id
		FROM likes WHERE post_id = ? AND liker = ?`, postID, liker).Scan(
		&l.PostID, &l.Liker, &l.Creator, &reward, &createdAt, &eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrLikeNotFound.WithDetails(map[string]string{"id": postID + ":" + liker})
	}
	if err != nil {
		return nil, classify(err)
	}

	if l.Reward, err = domain.ParseAmount(reward); err != nil {
		return nil, err
	}
	if l.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if err := l.EventID.UnmarshalText([]byte(eventID)); err != nil {
		return nil, err
	}
	return &l, nil
}

// CountLikes counts the like records of a post.
func (s *Store) CountLikes(ctx context.Context, postID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM likes WHERE post_id = ?`, postID).Scan(&n)
	return n, classify(err)
}
