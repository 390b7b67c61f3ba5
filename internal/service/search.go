package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tasteapp/taste-index/internal/domain"
	domainerrors "github.com/tasteapp/taste-index/internal/errors"
	"github.com/tasteapp/taste-index/internal/metrics"
	"github.com/tasteapp/taste-index/internal/normalize"
	"github.com/tasteapp/taste-index/internal/search"
	"github.com/tasteapp/taste-index/internal/store"
)

// Search result bounds.
const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50
)

// rebuildBatchSize is how many posts are indexed per batch during a rebuild.
const rebuildBatchSize = 500

// SearchService bridges the caption index and the post store.
// The caption index is derived data: it can always be rebuilt from the store.
type SearchService struct {
	index   *search.SearchIndex
	store   store.Index
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, store store.Index, m *metrics.Metrics, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:   index,
		store:   store,
		metrics: m,
		logger:  logger,
	}
}

// SearchRequest holds caption search input.
type SearchRequest struct {
	Query    string
	Category string
	Creator  string
	Limit    int
	Offset   int
	Recent   bool
}

// Search runs a caption search.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (*search.SearchResult, error) {
	params := search.SearchParams{
		Query:  normalize.Text(req.Query),
		Limit:  req.Limit,
		Offset: max(req.Offset, 0),
		SortBy: "relevance",
	}
	if params.Limit <= 0 {
		params.Limit = defaultSearchLimit
	}
	params.Limit = min(params.Limit, maxSearchLimit)
	if req.Recent {
		params.SortBy = "recent"
	}

	if req.Category != "" {
		category, ok := domain.ParseCategory(req.Category)
		if !ok {
			return nil, domainerrors.Validationf("unknown category %q", req.Category)
		}
		params.Category = string(category)
	}
	if req.Creator != "" {
		params.Creator = normalize.Address(req.Creator)
		if !normalize.IsAddress(params.Creator) {
			return nil, domainerrors.Validationf("invalid address %q", req.Creator)
		}
	}

	result, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, domainerrors.Internalf("search captions: %v", err).WithCause(err)
	}
	return result, nil
}

// IndexPost adds a newly applied post to the caption index. Failures are
// logged and counted; the post stays findable through the store and the next
// rebuild picks it up.
func (s *SearchService) IndexPost(post *domain.Post) {
	if post == nil {
		return
	}
	if err := s.index.IndexDocument(search.NewPostDocument(post)); err != nil {
		s.metrics.SearchIndexFailed()
		s.logger.Warn("failed to index post caption", "post_id", post.PostID, "error", err)
		return
	}
	s.logger.Debug("indexed post caption", "post_id", post.PostID)
}

// Rebuild recreates the caption index from every post in the store.
func (s *SearchService) Rebuild(ctx context.Context) (int, error) {
	if err := s.index.Reset(); err != nil {
		return 0, fmt.Errorf("reset caption index: %w", err)
	}

	var total int
	batch := make([]*search.PostDocument, 0, rebuildBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.index.IndexDocuments(batch); err != nil {
			return fmt.Errorf("index batch: %w", err)
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for post, err := range s.store.AllPosts(ctx) {
		if err != nil {
			return total, err
		}
		batch = append(batch, search.NewPostDocument(post))
		if len(batch) == rebuildBatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}

	s.logger.Info("rebuilt caption index", "posts", total)
	return total, nil
}

// EnsureIndexed rebuilds the caption index when its document count disagrees
// with the store, as after a crash between an apply and its indexing.
func (s *SearchService) EnsureIndexed(ctx context.Context) error {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return err
	}
	docs, err := s.index.DocumentCount()
	if err != nil {
		return fmt.Errorf("count caption documents: %w", err)
	}
	if int64(docs) == stats.Posts {
		return nil
	}

	s.logger.Info("caption index out of date, rebuilding", "documents", docs, "posts", stats.Posts)
	_, err = s.Rebuild(ctx)
	return err
}

// DocumentCount returns the number of indexed captions.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}
