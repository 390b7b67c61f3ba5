package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tasteapp/taste-index/internal/domain"
	"github.com/tasteapp/taste-index/internal/ingest"
	"github.com/tasteapp/taste-index/internal/search"
	"github.com/tasteapp/taste-index/internal/store"
	"github.com/tasteapp/taste-index/internal/store/storetest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(t.TempDir(), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func setupTestSearch(t *testing.T, index store.Index) *SearchService {
	t.Helper()
	idx, err := search.NewSearchIndex(search.Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return NewSearchService(idx, index, nil, discardLogger())
}

// pipeline wires writer, search and ingestor over one badger store.
type pipeline struct {
	store    *store.Store
	search   *SearchService
	writer   *WriterService
	ingestor *ingest.Ingestor
}

func setupPipeline(t *testing.T) *pipeline {
	t.Helper()
	s := setupTestStore(t)
	searchSvc := setupTestSearch(t, s)
	writer := NewWriterService(s, searchSvc, DefaultWriterConfig(), nil, discardLogger())
	return &pipeline{
		store:    s,
		search:   searchSvc,
		writer:   writer,
		ingestor: ingest.New(writer, ingest.DefaultOptions(), nil, discardLogger()),
	}
}

func mintFact(tx int, creator, postID string, category domain.Category, at time.Time, caption string) domain.Fact {
	return domain.NewMintedFact(storetest.EventID(tx, 0), at, domain.PostMinted{
		Creator:    creator,
		PostID:     postID,
		ContentRef: "ipfs://bafy" + postID,
		Caption:    caption,
		Category:   string(category),
		Reward:     domain.NewAmount(0),
	})
}

func likeFact(tx int, postID, liker, creator string, at time.Time, reward uint64) domain.Fact {
	return domain.NewLikedFact(storetest.EventID(tx, 0), at, domain.PostLiked{
		PostID:  postID,
		Liker:   liker,
		Creator: creator,
		Reward:  domain.NewAmount(reward),
	})
}

func mustIngest(t *testing.T, p *pipeline, facts ...domain.Fact) {
	t.Helper()
	for _, f := range facts {
		_, err := p.ingestor.Ingest(context.Background(), f)
		require.NoError(t, err, "ingest %s", f.ID)
	}
}
