package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tasteapp/taste-index/internal/domain"
	domainerrors "github.com/tasteapp/taste-index/internal/errors"
	"github.com/tasteapp/taste-index/internal/normalize"
	"github.com/tasteapp/taste-index/internal/store"
)

// Page bounds per query.
const (
	defaultCategoryLimit    = 20
	maxCategoryLimit        = 100
	defaultRecentLimit      = 50
	maxRecentLimit          = 100
	defaultCreatorLimit     = 100
	maxCreatorLimit         = 500
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 50
)

// QueryService answers feed, profile and leaderboard reads. It never calls
// the ledger and only sees committed index state.
type QueryService struct {
	index        store.Index
	recentWindow time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// NewQueryService creates a new query service. recentWindow is the trailing
// window of the recent leaderboard.
func NewQueryService(index store.Index, recentWindow time.Duration, logger *slog.Logger) *QueryService {
	if recentWindow <= 0 {
		recentWindow = domain.DefaultRecentWindow
	}
	return &QueryService{
		index:        index,
		recentWindow: recentWindow,
		now:          time.Now,
		logger:       logger,
	}
}

// PostPage is one page of a post feed.
type PostPage = store.PaginatedResult[*domain.Post]

// ListRecent returns all posts newest first.
func (s *QueryService) ListRecent(ctx context.Context, limit int, cursor string) (*PostPage, error) {
	params := store.PaginationParams{Limit: limit, Cursor: cursor}
	params.Clamp(defaultRecentLimit, maxRecentLimit)
	return s.index.ListRecentPosts(ctx, params)
}

// ListByCategory returns the posts of one category newest first.
func (s *QueryService) ListByCategory(ctx context.Context, category string, limit int, cursor string) (*PostPage, error) {
	c, ok := domain.ParseCategory(category)
	if !ok {
		return nil, domainerrors.Validationf("unknown category %q", category).
			WithDetails(map[string]string{"category": "must be one of " + categoryList()})
	}
	params := store.PaginationParams{Limit: limit, Cursor: cursor}
	params.Clamp(defaultCategoryLimit, maxCategoryLimit)
	return s.index.ListPostsByCategory(ctx, c, params)
}

// ListByCreator returns the posts of one address newest first.
func (s *QueryService) ListByCreator(ctx context.Context, address string, limit int, cursor string) (*PostPage, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	params := store.PaginationParams{Limit: limit, Cursor: cursor}
	params.Clamp(defaultCreatorLimit, maxCreatorLimit)
	return s.index.ListPostsByCreator(ctx, addr, params)
}

// GetPost returns one post.
func (s *QueryService) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	id, err := domain.ParsePostID(postID)
	if err != nil {
		return nil, domainerrors.Validation(err.Error()).
			WithDetails(map[string]string{"postId": "must be an unsigned integer"})
	}
	return s.index.GetPost(ctx, id)
}

// AccountView is an account as shown to readers. Unknown addresses get a
// zero-valued account with Exists false.
type AccountView struct {
	*domain.Account
	Exists bool `json:"exists"`
}

// GetAccount returns the account of address.
func (s *QueryService) GetAccount(ctx context.Context, address string) (*AccountView, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	acct, err := s.index.GetAccount(ctx, addr)
	if errors.Is(err, domainerrors.ErrNotFound) {
		return &AccountView{Account: &domain.Account{Address: addr}}, nil
	}
	if err != nil {
		return nil, err
	}
	return &AccountView{Account: acct, Exists: true}, nil
}

// Leaderboard ranks accounts by total earned, ties by address.
func (s *QueryService) Leaderboard(ctx context.Context, window domain.LeaderboardWindow, limit int) (*domain.Leaderboard, error) {
	if window == "" {
		window = domain.LeaderboardWindowAll
	}
	if !window.Valid() {
		return nil, domainerrors.Validationf("unknown leaderboard window %q", window).
			WithDetails(map[string]string{"window": "must be all or recent"})
	}
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	limit = min(limit, maxLeaderboardLimit)

	var since time.Time
	if window == domain.LeaderboardWindowRecent {
		since = s.now().UTC().Add(-s.recentWindow)
	}

	accounts, err := s.index.Leaderboard(ctx, limit, since)
	if err != nil {
		return nil, err
	}

	board := &domain.Leaderboard{
		Window:  window,
		Since:   since,
		Entries: make([]domain.LeaderboardEntry, 0, len(accounts)),
	}
	for i, acct := range accounts {
		board.Entries = append(board.Entries, domain.LeaderboardEntry{
			Rank:        i + 1,
			Address:     acct.Address,
			DisplayName: acct.DisplayName,
			AvatarRef:   acct.AvatarRef,
			TotalEarned: acct.TotalEarned,
			PostCount:   acct.PostCount,
			LastActive:  acct.LastActive,
		})
	}
	return board, nil
}

// Stats returns index record counts.
func (s *QueryService) Stats(ctx context.Context) (*store.Stats, error) {
	return s.index.Stats(ctx)
}

// parseAddress normalizes and checks a wallet address from a request.
func parseAddress(raw string) (string, error) {
	addr := normalize.Address(raw)
	if !normalize.IsAddress(addr) {
		return "", domainerrors.Validationf("invalid address %q", raw).
			WithDetails(map[string]string{"address": "must be 0x followed by 40 hex characters"})
	}
	return addr, nil
}

func categoryList() string {
	names := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
