package store

import (
	"context"
	"iter"
	"time"

	"github.com/tasteapp/taste-index/internal/domain"
)

// Index defines the persistence operations of the read index.
// Both the badger Store and the sqlite Store implement it.
type Index interface {
	// Lifecycle
	Close() error
	Ping(ctx context.Context) error

	// Writes. Apply is the only way posts, likes and aggregates change.
	Apply(ctx context.Context, m domain.Mutation) (domain.ApplyResult, error)
	UpdateProfile(ctx context.Context, address string, update domain.ProfileUpdate, now time.Time) (*domain.Account, error)

	// Posts
	GetPost(ctx context.Context, postID string) (*domain.Post, error)
	ListPostsByCategory(ctx context.Context, category domain.Category, params PaginationParams) (*PaginatedResult[*domain.Post], error)
	ListPostsByCreator(ctx context.Context, address string, params PaginationParams) (*PaginatedResult[*domain.Post], error)
	ListRecentPosts(ctx context.Context, params PaginationParams) (*PaginatedResult[*domain.Post], error)
	AllPosts(ctx context.Context) iter.Seq2[*domain.Post, error]

	// Likes
	GetLike(ctx context.Context, postID, liker string) (*domain.Like, error)
	CountLikes(ctx context.Context, postID string) (int64, error)

	// Accounts
	GetAccount(ctx context.Context, address string) (*domain.Account, error)
	// Leaderboard returns up to limit accounts by total earned descending,
	// ties by address ascending. A non-zero activeSince keeps only accounts
	// whose LastActive is at or after it.
	Leaderboard(ctx context.Context, limit int, activeSince time.Time) ([]*domain.Account, error)

	// Processed events and checkpoints
	IsProcessed(ctx context.Context, id domain.EventID) (bool, error)
	GetCheckpoint(ctx context.Context, name string) (domain.EventID, error)
	SetCheckpoint(ctx context.Context, name string, id domain.EventID) error

	Stats(ctx context.Context) (*Stats, error)
}

// Stats are record counts for health and inspection.
type Stats struct {
	Posts           int64 `json:"posts"`
	Likes           int64 `json:"likes"`
	Accounts        int64 `json:"accounts"`
	ProcessedEvents int64 `json:"processed_events"`
}
