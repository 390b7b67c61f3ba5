package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tasteapp/taste-index/internal/api/dto"
)

func (s *Server) registerFeedRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listFeed",
		Method:      http.MethodGet,
		Path:        "/api/v1/feed",
		Summary:     "List recent posts",
		Description: "Returns posts of every category, newest first",
		Tags:        []string{"Feed"},
	}, s.handleListFeed)

	huma.Register(s.api, huma.Operation{
		OperationID: "listFeedByCategory",
		Method:      http.MethodGet,
		Path:        "/api/v1/feed/{category}",
		Summary:     "List posts by category",
		Description: "Returns the posts of one category, newest first",
		Tags:        []string{"Feed"},
	}, s.handleListFeedByCategory)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPost",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts/{postId}",
		Summary:     "Get post",
		Description: "Returns one indexed post with its like count",
		Tags:        []string{"Feed"},
	}, s.handleGetPost)
}

// === DTOs ===

// ListFeedInput contains parameters for the mixed feed.
type ListFeedInput struct {
	dto.CursorParams
}

// ListFeedByCategoryInput contains parameters for a category feed.
type ListFeedByCategoryInput struct {
	Category string `path:"category" doc:"cook or taste"`
	dto.CursorParams
}

// PostPageOutput wraps a page of posts for Huma.
type PostPageOutput struct {
	Body dto.CursorPage[dto.Post]
}

// GetPostInput contains parameters for getting a post.
type GetPostInput struct {
	PostID string `path:"postId" doc:"Ledger post id"`
}

// PostOutput wraps a post for Huma.
type PostOutput struct {
	Body dto.Post
}

// === Handlers ===

func (s *Server) handleListFeed(ctx context.Context, input *ListFeedInput) (*PostPageOutput, error) {
	page, err := s.services.Query.ListRecent(ctx, input.Limit, input.Cursor)
	if err != nil {
		return nil, err
	}
	return &PostPageOutput{Body: dto.NewPostPage(page.Items, page.NextCursor, page.HasMore)}, nil
}

func (s *Server) handleListFeedByCategory(ctx context.Context, input *ListFeedByCategoryInput) (*PostPageOutput, error) {
	page, err := s.services.Query.ListByCategory(ctx, input.Category, input.Limit, input.Cursor)
	if err != nil {
		return nil, err
	}
	return &PostPageOutput{Body: dto.NewPostPage(page.Items, page.NextCursor, page.HasMore)}, nil
}

func (s *Server) handleGetPost(ctx context.Context, input *GetPostInput) (*PostOutput, error) {
	post, err := s.services.Query.GetPost(ctx, input.PostID)
	if err != nil {
		return nil, err
	}
	return &PostOutput{Body: dto.NewPost(post)}, nil
}
