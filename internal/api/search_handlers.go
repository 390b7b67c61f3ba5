package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tasteapp/taste-index/internal/search"
	"github.com/tasteapp/taste-index/internal/service"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchCaptions",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search captions",
		Description: "Full-text search over post captions, filterable by category and creator",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// === DTOs ===

// SearchInput contains parameters for searching captions.
type SearchInput struct {
	Query    string `query:"q" maxLength:"200" doc:"Search text; empty lists every post"`
	Category string `query:"category" doc:"Filter by category"`
	Creator  string `query:"creator" doc:"Filter by creator address"`
	Sort     string `query:"sort" enum:"relevance,recent" default:"relevance" doc:"Result order"`
	Limit    int    `query:"limit" minimum:"0" doc:"Max results (default 20, max 50)"`
	Offset   int    `query:"offset" minimum:"0" doc:"Pagination offset"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body search.SearchResult
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	if s.services.Search == nil {
		return nil, huma.Error503ServiceUnavailable("Search is not available")
	}

	result, err := s.services.Search.Search(ctx, service.SearchRequest{
		Query:    input.Query,
		Category: input.Category,
		Creator:  input.Creator,
		Limit:    input.Limit,
		Offset:   input.Offset,
		Recent:   input.Sort == "recent",
	})
	if err != nil {
		return nil, err
	}
	return &SearchOutput{Body: *result}, nil
}
