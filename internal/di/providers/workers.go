package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/tasteapp/taste-index/internal/ingest"
	"github.com/tasteapp/taste-index/internal/logger"
	"github.com/tasteapp/taste-index/internal/service"
)

// IngestWorker drives the ledger feed through the ingestor.
type IngestWorker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable. It waits for the in-flight fact.
func (w *IngestWorker) Shutdown() error {
	w.cancel()
	<-w.done
	return nil
}

// ProvideIngestWorker starts live ingestion.
func ProvideIngestWorker(i do.Injector) (*IngestWorker, error) {
	ledgerHandle := do.MustInvoke[*LedgerHandle](i)
	ingestor := do.MustInvoke[*ingest.Ingestor](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := ingestor.Run(ctx, ledgerHandle.Feed); err != nil {
			log.Error("Ingest stopped with error; unacknowledged facts will be redelivered", "error", err)
		}
	}()

	return &IngestWorker{cancel: cancel, done: done}, nil
}

// ReconcileJob runs periodic reconcile.
type ReconcileJob struct {
	reconcile *service.ReconcileService
	cancel    context.CancelFunc
}

// Shutdown implements do.Shutdownable. It also stops runs started through
// the admin endpoint.
func (j *ReconcileJob) Shutdown() error {
	j.cancel()
	j.reconcile.Close()
	return nil
}

// ProvideReconcileJob starts the periodic reconcile job. It is idle when
// RECONCILE_INTERVAL is 0.
func ProvideReconcileJob(i do.Injector) (*ReconcileJob, error) {
	reconcile := do.MustInvoke[*service.ReconcileService](i)

	ctx, cancel := context.WithCancel(context.Background())
	go reconcile.Start(ctx)

	return &ReconcileJob{reconcile: reconcile, cancel: cancel}, nil
}
