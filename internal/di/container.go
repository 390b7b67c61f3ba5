// Package di provides dependency injection configuration for the index server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/tasteapp/taste-index/internal/auth"
	"github.com/tasteapp/taste-index/internal/config"
	"github.com/tasteapp/taste-index/internal/di/providers"
	"github.com/tasteapp/taste-index/internal/ingest"
	"github.com/tasteapp/taste-index/internal/logger"
	"github.com/tasteapp/taste-index/internal/metrics"
	"github.com/tasteapp/taste-index/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideTokenService)

	// Storage and search
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Ledger and write path
	do.Provide(injector, providers.ProvideLedger)
	do.Provide(injector, providers.ProvideWriterService)
	do.Provide(injector, providers.ProvideIngestor)

	// Business services
	do.Provide(injector, providers.ProvideQueryService)
	do.Provide(injector, providers.ProvideProfileService)
	do.Provide(injector, providers.ProvideFactService)
	do.Provide(injector, providers.ProvideReconcileService)

	// Workers
	do.Provide(injector, providers.ProvideIngestWorker)
	do.Provide(injector, providers.ProvideReconcileJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and starts the workers and the server.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*metrics.Metrics](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*service.SearchService](injector)
	if _, err := do.Invoke[*providers.LedgerHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*service.WriterService](injector)
	_ = do.MustInvoke[*ingest.Ingestor](injector)

	_ = do.MustInvoke[*service.QueryService](injector)
	_ = do.MustInvoke[*service.ProfileService](injector)
	_ = do.MustInvoke[*service.FactService](injector)
	_ = do.MustInvoke[*service.ReconcileService](injector)

	// Rebuild the caption index in the background if it lags the store.
	providers.EnsureSearchIndexed(injector)

	// Workers
	_ = do.MustInvoke[*providers.IngestWorker](injector)
	_ = do.MustInvoke[*providers.ReconcileJob](injector)

	// Server
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	return nil
}
