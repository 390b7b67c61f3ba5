package search

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// mappingVersion changes whenever buildIndexMapping does. An index written
// with another version is dropped and recreated on open.
const mappingVersion = "1"

// batchSize bounds the documents committed in one Bleve batch.
const batchSize = 500

// Options configures the caption index.
type Options struct {
	DataPath string       // Directory holding the index
	Logger   *slog.Logger // Discards logs if nil
}

// SearchIndex is the caption index. All methods are safe for concurrent use;
// Reset takes the lock exclusively.
type SearchIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	logger *slog.Logger
}

// NewSearchIndex opens the index under opts.DataPath, creating it if it is
// missing, unreadable or built with an older mapping.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &SearchIndex{
		path:   filepath.Join(opts.DataPath, "captions.bleve"),
		logger: logger,
	}
	versionPath := filepath.Join(opts.DataPath, "captions.version")

	if index, ok := s.openExisting(versionPath); ok {
		s.index = index
		logger.Info("opened caption index", "path", s.path)
		return s, nil
	}

	if err := os.RemoveAll(s.path); err != nil {
		return nil, fmt.Errorf("remove stale index: %w", err)
	}
	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
		logger.Warn("failed to write caption index version", "error", err)
	}
	s.index = index
	logger.Info("created caption index", "path", s.path, "mapping_version", mappingVersion)
	return s, nil
}

// openExisting opens the index on disk when its mapping version is current.
func (s *SearchIndex) openExisting(versionPath string) (bleve.Index, bool) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil, false
	}

	version, err := os.ReadFile(versionPath)
	if err != nil || string(version) != mappingVersion {
		s.logger.Info("caption index mapping changed, recreating",
			"old_version", string(version),
			"new_version", mappingVersion,
		)
		return nil, false
	}

	index, err := bleve.Open(s.path)
	if err != nil {
		s.logger.Warn("failed to open caption index, recreating", "path", s.path, "error", err)
		return nil, false
	}
	return index, true
}

// Close closes the index.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexDocument adds or replaces one document.
func (s *SearchIndex) IndexDocument(doc *PostDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexDocuments adds or replaces documents in batches of batchSize.
func (s *SearchIndex) IndexDocuments(docs []*PostDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for start := 0; start < len(docs); start += batchSize {
		end := min(start+batchSize, len(docs))

		batch := s.index.NewBatch()
		for _, doc := range docs[start:end] {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// DocumentCount returns the number of indexed posts.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Reset drops every document by recreating the index. Searches block until
// it returns.
func (s *SearchIndex) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}
	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	s.index = index
	s.logger.Info("reset caption index", "path", s.path)
	return nil
}
