package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a caption search.
type SearchParams struct {
	Query    string // Free text matched against captions
	Category string // Exact category filter, empty for all
	Creator  string // Exact creator filter, empty for all

	Limit  int
	Offset int

	// SortBy is "relevance" (default) or "recent".
	SortBy string
}

// SearchResult holds one page of hits.
type SearchResult struct {
	Query      string       `json:"query"`
	Total      uint64       `json:"total"`
	TookMs     int64        `json:"took_ms"`
	Hits       []SearchHit  `json:"hits"`
	Categories []FacetCount `json:"categories,omitempty"`
}

// SearchHit is one matching post.
type SearchHit struct {
	PostID    string    `json:"post_id"`
	Score     float64   `json:"score"`
	Caption   string    `json:"caption"`
	Category  string    `json:"category"`
	Creator   string    `json:"creator"`
	CreatedAt time.Time `json:"created_at"`
	Highlight string    `json:"highlight,omitempty"`
}

// FacetCount is a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a caption search.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	if params.SortBy == "recent" {
		req.SortBy([]string{"-created_at", "id"})
	} else {
		req.SortBy([]string{"-_score", "-created_at"})
	}
	req.AddFacet("category", bleve.NewFacetRequest("category", 10))
	if params.Query != "" {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("caption")
	}
	req.Fields = []string{"caption", "category", "creator", "created_at"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		h := SearchHit{PostID: hit.ID, Score: hit.Score}
		if v, ok := hit.Fields["caption"].(string); ok {
			h.Caption = v
		}
		if v, ok := hit.Fields["category"].(string); ok {
			h.Category = v
		}
		if v, ok := hit.Fields["creator"].(string); ok {
			h.Creator = v
		}
		if v, ok := hit.Fields["created_at"].(float64); ok {
			h.CreatedAt = time.UnixMilli(int64(v)).UTC()
		}
		if frags := hit.Fragments["caption"]; len(frags) > 0 {
			h.Highlight = frags[0]
		}
		result.Hits = append(result.Hits, h)
	}

	if facet, ok := res.Facets["category"]; ok && facet.Terms != nil {
		for _, term := range facet.Terms.Terms() {
			result.Categories = append(result.Categories, FacetCount{Value: term.Term, Count: term.Count})
		}
	}
	return result, nil
}

// buildSearchQuery ANDs the text query with the exact filters.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	if text := strings.TrimSpace(params.Query); text != "" {
		match := bleve.NewMatchQuery(text)
		match.SetField("caption")
		match.SetBoost(2.0)

		// Typo tolerance on single words
		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(text))
		fuzzy.SetField("caption")
		fuzzy.SetFuzziness(1)
		fuzzy.SetBoost(0.5)

		textQueries := []query.Query{match, fuzzy}
		if len(text) >= 2 && !strings.ContainsRune(text, ' ') {
			prefix := bleve.NewPrefixQuery(strings.ToLower(text))
			prefix.SetField("caption")
			prefix.SetBoost(0.5)
			textQueries = append(textQueries, prefix)
		}
		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if params.Category != "" {
		q := bleve.NewTermQuery(params.Category)
		q.SetField("category")
		queries = append(queries, q)
	}
	if params.Creator != "" {
		q := bleve.NewTermQuery(params.Creator)
		q.SetField("creator")
		queries = append(queries, q)
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}
