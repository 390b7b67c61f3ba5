package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tasteapp/taste-index/internal/api/dto"
	"github.com/tasteapp/taste-index/internal/domain"
)

func (s *Server) registerLeaderboardRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getLeaderboard",
		Method:      http.MethodGet,
		Path:        "/api/v1/leaderboard",
		Summary:     "Get leaderboard",
		Description: "Ranks accounts by total earned; ties are ordered by address",
		Tags:        []string{"Leaderboard"},
	}, s.handleGetLeaderboard)

	huma.Register(s.api, huma.Operation{
		OperationID: "getStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Get index stats",
		Description: "Returns record counts and the reconcile checkpoint",
		Tags:        []string{"Leaderboard"},
	}, s.handleGetStats)
}

// === DTOs ===

// GetLeaderboardInput contains parameters for getting the leaderboard.
type GetLeaderboardInput struct {
	Window string `query:"window" enum:"all,recent" default:"all" doc:"all for every account, recent for accounts active in the trailing window"`
	Limit  int    `query:"limit" minimum:"0" doc:"Max entries (default 10, max 50)"`
}

// LeaderboardOutput wraps the leaderboard for Huma.
type LeaderboardOutput struct {
	Body dto.Leaderboard
}

// StatsOutput wraps index stats for Huma.
type StatsOutput struct {
	Body dto.IndexStats
}

// === Handlers ===

func (s *Server) handleGetLeaderboard(ctx context.Context, input *GetLeaderboardInput) (*LeaderboardOutput, error) {
	board, err := s.services.Query.Leaderboard(ctx, domain.LeaderboardWindow(input.Window), input.Limit)
	if err != nil {
		return nil, err
	}
	return &LeaderboardOutput{Body: dto.NewLeaderboard(board)}, nil
}

func (s *Server) handleGetStats(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	stats, err := s.services.Query.Stats(ctx)
	if err != nil {
		return nil, err
	}

	out := dto.IndexStats{
		Posts:           stats.Posts,
		Likes:           stats.Likes,
		Accounts:        stats.Accounts,
		ProcessedEvents: stats.ProcessedEvents,
	}
	if s.services.Reconcile != nil {
		checkpoint, err := s.services.Reconcile.Checkpoint(ctx)
		if err != nil {
			return nil, err
		}
		if !checkpoint.IsZero() {
			out.Checkpoint = checkpoint.String()
		}
	}
	return &StatsOutput{Body: out}, nil
}
