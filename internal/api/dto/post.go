package dto

import (
	"time"

	"github.com/tasteapp/taste-index/internal/domain"
)

// Post is an indexed post.
type Post struct {
	PostID     string    `json:"post_id" doc:"Ledger post id"`
	Creator    string    `json:"creator" doc:"Creator address"`
	ContentRef string    `json:"content_ref" doc:"Content locator of the post body"`
	ImageRef   string    `json:"image_ref,omitempty" doc:"Content locator of the image"`
	Caption    string    `json:"caption" doc:"Caption text"`
	Category   string    `json:"category" doc:"cook or taste"`
	Rating     *int      `json:"rating,omitempty" doc:"Star rating 1-5"`
	CreatedAt  time.Time `json:"created_at" doc:"Ledger timestamp of the mint"`
	LikeCount  int64     `json:"like_count" doc:"Number of distinct likes"`
	EventID    string    `json:"event_id" doc:"Ledger event that minted the post"`
}

// NewPost converts a domain post.
func NewPost(p *domain.Post) Post {
	return Post{
		PostID:     p.PostID,
		Creator:    p.Creator,
		ContentRef: p.ContentRef,
		ImageRef:   p.ImageRef,
		Caption:    p.Caption,
		Category:   string(p.Category),
		Rating:     p.Rating,
		CreatedAt:  p.CreatedAt,
		LikeCount:  p.LikeCount,
		EventID:    p.EventID.String(),
	}
}

// NewPostPage converts a page of domain posts.
func NewPostPage(items []*domain.Post, nextCursor string, hasMore bool) CursorPage[Post] {
	page := CursorPage[Post]{
		Items:      make([]Post, len(items)),
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}
	for i, p := range items {
		page.Items[i] = NewPost(p)
	}
	return page
}
