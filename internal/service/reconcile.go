package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tasteapp/taste-index/internal/domain"
	domainerrors "github.com/tasteapp/taste-index/internal/errors"
	"github.com/tasteapp/taste-index/internal/id"
	"github.com/tasteapp/taste-index/internal/ingest"
	"github.com/tasteapp/taste-index/internal/ledger"
	"github.com/tasteapp/taste-index/internal/metrics"
	"github.com/tasteapp/taste-index/internal/store"
)

// ReconcileCheckpoint is the checkpoint reconcile runs resume from.
const ReconcileCheckpoint = "reconcile"

// ReconcileConfig configures reconcile runs.
type ReconcileConfig struct {
	// BatchSize is the number of facts read from the ledger per page.
	BatchSize int
	// Interval between background runs; 0 disables them.
	Interval time.Duration
}

// DefaultReconcileConfig returns the reconcile defaults.
func DefaultReconcileConfig() ReconcileConfig {
	return ReconcileConfig{BatchSize: 500}
}

// ReconcileService re-feeds ledger facts through the ingestor so that facts
// the live feed missed end up in the index. Replays are safe because the
// writer is idempotent.
type ReconcileService struct {
	ledger   ledger.Client
	ingestor *ingest.Ingestor
	index    store.Index
	cfg      ReconcileConfig
	group    singleflight.Group
	closing  context.Context
	close    context.CancelFunc
	metrics  *metrics.Metrics
	now      func() time.Time
	logger   *slog.Logger
}

// NewReconcileService creates a new reconcile service.
func NewReconcileService(
	client ledger.Client,
	ingestor *ingest.Ingestor,
	index store.Index,
	cfg ReconcileConfig,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ReconcileService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultReconcileConfig().BatchSize
	}
	closing, closeFn := context.WithCancel(context.Background())
	return &ReconcileService{
		closing:  closing,
		close:    closeFn,
		ledger:   client,
		ingestor: ingestor,
		index:    index,
		cfg:      cfg,
		metrics:  m,
		now:      time.Now,
		logger:   logger,
	}
}

// Reconcile replays every fact after since. A nil since resumes from the
// stored checkpoint; the zero event id starts from the first fact.
//
// The checkpoint advances after each processed fact, so an interrupted run
// continues where it stopped. Concurrent calls for the same start point share
// one run, which keeps going when a caller gives up waiting. A store failure aborts the run and is returned along with the
// partial report.
func (s *ReconcileService) Reconcile(ctx context.Context, since *domain.EventID) (*domain.RepairReport, error) {
	var start domain.EventID
	if since != nil {
		start = *since
	} else {
		var err error
		start, err = s.index.GetCheckpoint(ctx, ReconcileCheckpoint)
		if err != nil {
			return nil, err
		}
	}

	key := "genesis"
	if !start.IsZero() {
		key = start.String()
	}

	ch := s.group.DoChan(key, func() (any, error) {
		// A shared run outlives the caller that started it; only Close stops it.
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		stop := context.AfterFunc(s.closing, cancel)
		defer stop()
		return s.run(runCtx, start)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		report, _ := res.Val.(*domain.RepairReport)
		if res.Shared {
			s.logger.Debug("joined running reconcile", "since", key)
		}
		return report, res.Err
	}
}

func (s *ReconcileService) run(ctx context.Context, start domain.EventID) (*domain.RepairReport, error) {
	runID, err := id.Generate(id.ReconcileRun)
	if err != nil {
		return nil, domainerrors.Internalf("reconcile run id: %v", err)
	}

	report := &domain.RepairReport{
		RunID:       runID,
		Since:       start,
		LastEventID: start,
		StartedAt:   s.now().UTC(),
	}
	logger := s.logger.With("run_id", runID)
	logger.Info("reconcile started", "since", start.String())

	err = s.replay(ctx, report, logger)
	report.FinishedAt = s.now().UTC()

	outcome := "ok"
	if err != nil {
		outcome = "error"
		logger.Error("reconcile aborted",
			"last_event_id", report.LastEventID.String(),
			"scanned", report.Scanned,
			"error", err,
		)
	} else {
		logger.Info("reconcile finished",
			"last_event_id", report.LastEventID.String(),
			"scanned", report.Scanned,
			"applied", report.Applied,
			"already_applied", report.AlreadyApplied,
			"rejected", report.Rejected,
		)
	}
	s.metrics.ReconcileFinished(outcome, report.Applied, report.AlreadyApplied, report.Rejected)
	return report, err
}

func (s *ReconcileService) replay(ctx context.Context, report *domain.RepairReport, logger *slog.Logger) error {
	cursor := report.Since
	for {
		facts, err := s.ledger.FactsAfter(ctx, cursor, s.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("read ledger after %s: %w", cursor, err)
		}

		for _, f := range facts {
			result, err := s.ingestor.Ingest(ctx, f)
			switch {
			case err == nil && result == domain.Applied:
				report.Applied++
			case err == nil:
				report.AlreadyApplied++
			case domainerrors.CodeOf(err).Terminal():
				report.Rejected++
				logger.Warn("fact rejected during reconcile",
					"event_id", f.ID.String(),
					"code", domainerrors.CodeOf(err),
					"error", err,
				)
			default:
				return err
			}
			report.Scanned++

			if err := s.index.SetCheckpoint(ctx, ReconcileCheckpoint, f.ID); err != nil {
				return err
			}
			report.LastEventID = f.ID
			cursor = f.ID
		}

		if len(facts) < s.cfg.BatchSize {
			return nil
		}
	}
}

// Start runs Reconcile every Interval until ctx ends. It returns immediately
// when the interval is zero.
func (s *ReconcileService) Start(ctx context.Context) {
	if s.cfg.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("periodic reconcile enabled", "interval", s.cfg.Interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Reconcile(ctx, nil); err != nil && ctx.Err() == nil {
				s.logger.Warn("periodic reconcile failed", "error", err)
			}
		}
	}
}

// Close cancels any run in progress. Later runs fail immediately.
func (s *ReconcileService) Close() {
	s.close()
}

// Checkpoint returns the last event id a reconcile run processed.
func (s *ReconcileService) Checkpoint(ctx context.Context) (domain.EventID, error) {
	return s.index.GetCheckpoint(ctx, ReconcileCheckpoint)
}
