package domain

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Category is the content category a post belongs to.
type Category string

const (
	// CategoryCook is a dish the creator cooked.
	CategoryCook Category = "cook"
	// CategoryTaste is a dish the creator tasted.
	CategoryTaste Category = "taste"
)

// Categories lists every valid category.
var Categories = []Category{CategoryCook, CategoryTaste}

// ParseCategory parses a category name case-insensitively.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

// Valid checks if the category is valid.
func (c Category) Valid() bool {
	switch c {
	case CategoryCook, CategoryTaste:
		return true
	default:
		return false
	}
}

const (
	// MaxCaptionLength is the maximum caption length in characters.
	MaxCaptionLength = 500
	// MinRating and MaxRating bound the optional star rating.
	MinRating = 1
	MaxRating = 5
)

// maxPostIDBits bounds post ids to the ledger's uint256 token ids.
const maxPostIDBits = 256

// ParsePostID returns the canonical decimal form of a ledger post id, so
// "007" and "7" name the same post.
func ParsePostID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("post id %q is not an unsigned integer", raw)
		}
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.BitLen() > maxPostIDBits {
		return "", fmt.Errorf("post id %q is not an unsigned integer", raw)
	}
	return n.String(), nil
}

// Post is the indexed form of a minted post.
// ContentRef and ImageRef are immutable once set; LikeCount is derived.
type Post struct {
	PostID     string    `json:"post_id"`
	Creator    string    `json:"creator"`
	ContentRef string    `json:"content_ref"`
	ImageRef   string    `json:"image_ref,omitempty"`
	Caption    string    `json:"caption"`
	Category   Category  `json:"category"`
	Rating     *int      `json:"rating,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LikeCount  int64     `json:"like_count"`
	EventID    EventID   `json:"event_id"`
}

// Like records that Liker liked PostID. At most one exists per (PostID, Liker).
type Like struct {
	PostID    string    `json:"post_id"`
	Liker     string    `json:"liker"`
	Creator   string    `json:"creator"`
	Reward    Amount    `json:"reward"`
	CreatedAt time.Time `json:"created_at"`
	EventID   EventID   `json:"event_id"`
}
