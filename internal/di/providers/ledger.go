package providers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/tasteapp/taste-index/internal/config"
	"github.com/tasteapp/taste-index/internal/domain"
	"github.com/tasteapp/taste-index/internal/ingest"
	"github.com/tasteapp/taste-index/internal/ledger"
	"github.com/tasteapp/taste-index/internal/logger"
	"github.com/tasteapp/taste-index/internal/watcher"
)

// LedgerHandle holds the configured ledger source: a Client for reconcile
// and a Feed for live ingestion.
type LedgerHandle struct {
	Client ledger.Client
	Feed   ledger.Feed

	watcher *watcher.Watcher
	cancel  context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *LedgerHandle) Shutdown() error {
	if h.cancel != nil {
		h.cancel()
	}
	err := h.Feed.Close()
	if h.watcher != nil {
		err = errors.Join(err, h.watcher.Stop())
	}
	return err
}

// ProvideLedger builds the ledger client and feed for LEDGER_SOURCE.
//
// The file and kafka feeds resume after the ingest checkpoint. The kafka
// source reconciles against the JSONL export at LEDGER_FILE.
func ProvideLedger(i do.Injector) (*LedgerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	ledgerLog := log.Component("ledger")

	after, err := storeHandle.GetCheckpoint(context.Background(), ingest.CheckpointName)
	if err != nil {
		return nil, fmt.Errorf("read ingest checkpoint: %w", err)
	}

	switch cfg.Ledger.Source {
	case config.LedgerMemory:
		mem := ledger.NewMemoryLedger()
		feed, err := mem.Feed(domain.EventID{})
		if err != nil {
			return nil, err
		}
		log.Info("Using in-memory ledger")
		return &LedgerHandle{Client: mem, Feed: feed}, nil

	case config.LedgerKafka:
		feed := ledger.NewKafkaFeed(ledger.KafkaConfig{
			Brokers: cfg.Ledger.KafkaBrokers,
			Topic:   cfg.Ledger.KafkaTopic,
			GroupID: cfg.Ledger.KafkaGroupID,
		}, ledgerLog)
		log.Info("Using kafka ledger", "topic", cfg.Ledger.KafkaTopic, "reconcile_file", cfg.Ledger.File)
		return &LedgerHandle{Client: ledger.NewFileLedger(cfg.Ledger.File, ledgerLog), Feed: feed}, nil

	default:
		file := ledger.NewFileLedger(cfg.Ledger.File, ledgerLog)

		if err := os.MkdirAll(filepath.Dir(cfg.Ledger.File), 0o750); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
		w, err := watcher.New(ledgerLog, watcher.Options{})
		if err != nil {
			return nil, err
		}
		if err := w.Watch(cfg.Ledger.File); err != nil {
			_ = w.Stop()
			return nil, err
		}

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			if err := w.Start(ctx); err != nil {
				log.Error("Ledger watcher error", "error", err)
			}
		}()
		go func() {
			for {
				select {
				case err, ok := <-w.Errors():
					if !ok {
						return
					}
					log.Warn("ledger watcher error", "error", err)
				case <-ctx.Done():
					return
				}
			}
		}()

		feed := file.Feed(ledger.FileFeedOptions{After: after, Watcher: w})
		log.Info("Tailing ledger export", "path", cfg.Ledger.File, "after", after.String())

		return &LedgerHandle{Client: file, Feed: feed, watcher: w, cancel: cancel}, nil
	}
}
