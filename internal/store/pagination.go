package store

import (
	"encoding/base64"
	"fmt"
)

// Page size bounds applied when a caller passes no limit or an oversized one.
// Query services apply tighter per-query bounds.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 500
)

// PaginationParams contains pagination request parameters.
type PaginationParams struct {
	Limit  int    // The number of items per page
	Cursor string // Opaque cursor for next page (empty for first page)
}

// PaginatedResult contains paginated data and metadata.
type PaginatedResult[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"` // Empty if no more pages
	HasMore    bool   `json:"has_more"`
}

// Clamp applies a default when the limit is unset and caps it at maxLimit.
func (p *PaginationParams) Clamp(defaultLimit, maxLimit int) {
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}

	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
}

// EncodeCursor creates an opaque cursor from a sort key.
func EncodeCursor(key string) string {
	if key == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(key))
}

// DecodeCursor decodes a cursor back to a sort key.
func DecodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return "", ErrInvalidCursor.WithCause(fmt.Errorf("decode cursor: %w", err))
	}

	return string(decoded), nil
}
