// Package dto provides request and response types for the index API.
// These types are used by huma to generate OpenAPI documentation and perform validation.
package dto

// CursorPage is one page of a cursor-paginated list.
type CursorPage[T any] struct {
	Items      []T    `json:"items" doc:"List of items"`
	NextCursor string `json:"next_cursor,omitempty" doc:"Opaque cursor for the next page"`
	HasMore    bool   `json:"has_more" doc:"Whether more pages exist"`
}

// CursorParams defines common cursor pagination query parameters.
// A zero limit means the endpoint default; larger limits are clamped.
type CursorParams struct {
	Limit  int    `query:"limit" minimum:"0" doc:"Page size"`
	Cursor string `query:"cursor" maxLength:"512" doc:"Cursor from a previous page"`
}

// MessageResponse is a simple success message response.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}
