package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tasteapp/taste-index/internal/api/dto"
	"github.com/tasteapp/taste-index/internal/service"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{address}",
		Summary:     "Get user",
		Description: "Returns the account of an address. Unknown addresses return zero totals with exists=false",
		Tags:        []string{"Users"},
	}, s.handleGetUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUserPosts",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{address}/posts",
		Summary:     "List user posts",
		Description: "Returns the posts minted by an address, newest first",
		Tags:        []string{"Users"},
	}, s.handleListUserPosts)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateUserProfile",
		Method:      http.MethodPatch,
		Path:        "/api/v1/users/{address}",
		Summary:     "Update profile",
		Description: "Edits the display name or avatar of an account. Requires an operator token",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateUserProfile)
}

// === DTOs ===

// AddressInput identifies an account.
type AddressInput struct {
	Address string `path:"address" doc:"Wallet address, any case"`
}

// AccountOutput wraps an account for Huma.
type AccountOutput struct {
	Body dto.Account
}

// ListUserPostsInput contains parameters for listing an address's posts.
type ListUserPostsInput struct {
	Address string `path:"address" doc:"Wallet address, any case"`
	dto.CursorParams
}

// UpdateProfileInput contains a profile edit.
type UpdateProfileInput struct {
	Address string `path:"address" doc:"Wallet address, any case"`
	Body    dto.UpdateProfileRequest
}

// === Handlers ===

func (s *Server) handleGetUser(ctx context.Context, input *AddressInput) (*AccountOutput, error) {
	view, err := s.services.Query.GetAccount(ctx, input.Address)
	if err != nil {
		return nil, err
	}
	return &AccountOutput{Body: dto.NewAccount(view.Account, view.Exists)}, nil
}

func (s *Server) handleListUserPosts(ctx context.Context, input *ListUserPostsInput) (*PostPageOutput, error) {
	page, err := s.services.Query.ListByCreator(ctx, input.Address, input.Limit, input.Cursor)
	if err != nil {
		return nil, err
	}
	return &PostPageOutput{Body: dto.NewPostPage(page.Items, page.NextCursor, page.HasMore)}, nil
}

func (s *Server) handleUpdateUserProfile(ctx context.Context, input *UpdateProfileInput) (*AccountOutput, error) {
	operator, err := s.RequireOperator(ctx)
	if err != nil {
		return nil, err
	}

	acct, err := s.services.Profile.UpdateProfile(ctx, input.Address, service.UpdateProfileRequest{
		DisplayName: input.Body.DisplayName,
		AvatarRef:   input.Body.AvatarRef,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile edited by operator", "operator", operator, "address", acct.Address)
	return &AccountOutput{Body: dto.NewAccount(acct, true)}, nil
}
