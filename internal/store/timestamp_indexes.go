package store

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tasteapp/taste-index/internal/domain"
)

// invertedTimestamp renders t so that newer times sort first under forward iteration.
func invertedTimestamp(t time.Time) string {
	inverted := math.MaxInt64 - t.UnixNano()
	return fmt.Sprintf("%019d", inverted)
}

// postSortKey is the part of a post index key after the index prefix:
// {invertedTs}:{eventKey}. Forward order is createdAt descending, then event
// id ascending.
func postSortKey(p *domain.Post) string {
	return invertedTimestamp(p.CreatedAt) + ":" + p.EventID.Key()
}

// formatTimestampIndexKey builds a post index key under prefix.
func formatTimestampIndexKey(prefix string, p *domain.Post) []byte {
	return []byte(prefix + postSortKey(p))
}

// parseTimestampIndexKey extracts the sort key from an index key under prefix.
func parseTimestampIndexKey(key []byte, expectedPrefix string) (string, error) {
	keyStr := string(key)
	if !strings.HasPrefix(keyStr, expectedPrefix) {
		return "", fmt.Errorf("invalid timestamp key: missing prefix %s", expectedPrefix)
	}

	sortKey := strings.TrimPrefix(keyStr, expectedPrefix)

	// Inverted timestamp is fixed width: 19 digits followed by ':'.
	const timestampLen = 19
	if len(sortKey) < timestampLen+2 || sortKey[timestampLen] != ':' {
		return "", fmt.Errorf("invalid timestamp key format: %s", keyStr)
	}
	return sortKey, nil
}

// postIndexKeys returns every index key a post is listed under.
func postIndexKeys(p *domain.Post) [][]byte {
	return [][]byte{
		formatTimestampIndexKey(postsAllIdxPrefix, p),
		formatTimestampIndexKey(categoryIdxPrefix(p.Category), p),
		formatTimestampIndexKey(creatorIdxPrefix(p.Creator), p),
	}
}

// PostSortKey returns the cursor sort key of p. Backends that do not store
// index keys encode their cursors with it so cursors share one format.
func PostSortKey(p *domain.Post) string {
	return postSortKey(p)
}

// ParsePostSortKey splits a sort key produced by PostSortKey into the post's
// creation time in Unix nanoseconds and its event key.
func ParsePostSortKey(sortKey string) (createdAtNs int64, eventKey string, err error) {
	inverted, eventKey, ok := strings.Cut(sortKey, ":")
	if !ok || len(inverted) != 19 || eventKey == "" {
		return 0, "", ErrInvalidCursor.WithCause(fmt.Errorf("malformed sort key %q", sortKey))
	}
	n, err := strconv.ParseInt(inverted, 10, 64)
	if err != nil || n < 0 {
		return 0, "", ErrInvalidCursor.WithCause(fmt.Errorf("malformed sort key %q", sortKey))
	}
	return math.MaxInt64 - n, eventKey, nil
}
