package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/tasteapp/taste-index/internal/config"
	"github.com/tasteapp/taste-index/internal/logger"
	"github.com/tasteapp/taste-index/internal/metrics"
	"github.com/tasteapp/taste-index/internal/search"
	"github.com/tasteapp/taste-index/internal/service"
)

// SearchIndexHandle wraps the caption index with shutdown capability.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the bleve caption index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Index.DataPath,
		Logger:   log.Component("search"),
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Caption index initialized", "documents", docCount)

	return &SearchIndexHandle{SearchIndex: index}, nil
}

// ProvideSearchService provides the caption search service.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSearchService(indexHandle.SearchIndex, storeHandle.Index, m, log.Component("search")), nil
}

// EnsureSearchIndexed rebuilds the caption index in the background when it
// disagrees with the store. Feeds keep working while it runs.
func EnsureSearchIndexed(i do.Injector) {
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	go func() {
		if err := searchService.EnsureIndexed(context.Background()); err != nil {
			log.Error("Caption index check failed", "error", err)
			return
		}
		count, _ := searchService.DocumentCount()
		log.Info("Caption index ready", "documents", count)
	}()
}
