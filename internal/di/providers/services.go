package providers

import (
	"github.com/samber/do/v2"

	"github.com/tasteapp/taste-index/internal/config"
	"github.com/tasteapp/taste-index/internal/ingest"
	"github.com/tasteapp/taste-index/internal/logger"
	"github.com/tasteapp/taste-index/internal/metrics"
	"github.com/tasteapp/taste-index/internal/service"
)

// ProvideWriterService provides the idempotent index writer.
func ProvideWriterService(i do.Injector) (*service.WriterService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewWriterService(storeHandle.Index, searchService, writerConfig(cfg), m, log.Component("writer")), nil
}

func writerConfig(cfg *config.Config) service.WriterConfig {
	return service.WriterConfig{
		MaxAttempts:    cfg.Writer.MaxAttempts,
		InitialBackoff: cfg.Writer.InitialBackoff,
		MaxBackoff:     cfg.Writer.MaxBackoff,
	}
}

// ProvideIngestor provides the fact ingestor.
func ProvideIngestor(i do.Injector) (*ingest.Ingestor, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	writer := do.MustInvoke[*service.WriterService](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	opts := ingest.DefaultOptions()
	opts.ContentScheme = cfg.Content.Scheme
	opts.Checkpoints = storeHandle.Index

	return ingest.New(writer, opts, m, log.Component("ingest")), nil
}

// ProvideQueryService provides the read-side query service.
func ProvideQueryService(i do.Injector) (*service.QueryService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewQueryService(storeHandle.Index, cfg.Query.RecentWindow, log.Component("query")), nil
}

// ProvideProfileService provides the profile edit service.
func ProvideProfileService(i do.Injector) (*service.ProfileService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewProfileService(storeHandle.Index, cfg.Content.Scheme, writerConfig(cfg), log.Component("profile")), nil
}

// ProvideFactService provides operator fact submission.
func ProvideFactService(i do.Injector) (*service.FactService, error) {
	ingestor := do.MustInvoke[*ingest.Ingestor](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewFactService(ingestor, log.Component("facts")), nil
}

// ProvideReconcileService provides ledger reconciliation.
func ProvideReconcileService(i do.Injector) (*service.ReconcileService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	ledgerHandle := do.MustInvoke[*LedgerHandle](i)
	ingestor := do.MustInvoke[*ingest.Ingestor](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReconcileService(ledgerHandle.Client, ingestor, storeHandle.Index, service.ReconcileConfig{
		BatchSize: cfg.Reconcile.BatchSize,
		Interval:  cfg.Reconcile.Interval,
	}, m, log.Component("reconcile")), nil
}
