// Package search provides full-text search over post captions using Bleve.
// Results can be narrowed by category and creator and carry category facets.
package search

import (
	"github.com/tasteapp/taste-index/internal/domain"
)

// PostDocument is the Bleve document for one post.
// The document id is the ledger post id.
type PostDocument struct {
	ID        string `json:"id"`
	Caption   string `json:"caption"`
	Category  string `json:"category"`
	Creator   string `json:"creator"`
	CreatedAt int64  `json:"created_at"` // Unix millis
}

// NewPostDocument builds the search document for an indexed post.
func NewPostDocument(p *domain.Post) *PostDocument {
	return &PostDocument{
		ID:        p.PostID,
		Caption:   p.Caption,
		Category:  string(p.Category),
		Creator:   p.Creator,
		CreatedAt: p.CreatedAt.UnixMilli(),
	}
}

// ToMap converts the document to a map keyed by the mapping's field names.
func (d *PostDocument) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"id":         d.ID,
		"caption":    d.Caption,
		"category":   d.Category,
		"creator":    d.Creator,
		"created_at": d.CreatedAt,
	}
}
