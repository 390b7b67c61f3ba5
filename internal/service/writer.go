package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tasteapp/taste-index/internal/domain"
	domainerrors "github.com/tasteapp/taste-index/internal/errors"
	"github.com/tasteapp/taste-index/internal/metrics"
	"github.com/tasteapp/taste-index/internal/store"
)

// WriterConfig bounds how often a conflicting write is retried.
type WriterConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultWriterConfig returns the writer defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		MaxAttempts:    5,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// WriterService is the idempotent index writer. It applies one mutation per
// call, retries lost write races and feeds applied posts to caption search.
type WriterService struct {
	index   store.Index
	search  *SearchService
	cfg     WriterConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// withDefaults fills unset fields from DefaultWriterConfig.
func (c WriterConfig) withDefaults() WriterConfig {
	defaults := DefaultWriterConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaults.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = defaults.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaults.MaxBackoff
	}
	return c
}

// retryConflicts runs op until it succeeds, fails with anything but a
// WriteConflict, or has run MaxAttempts times. notify is called before each
// retry.
func retryConflicts(ctx context.Context, cfg WriterConfig, op func() error, notify func(err error, wait time.Duration)) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialBackoff
	b.MaxInterval = cfg.MaxBackoff
	b.MaxElapsedTime = 0

	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !domainerrors.Is(err, domainerrors.ErrWriteConflict) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(cfg.MaxAttempts-1)), ctx), notify)
}

// NewWriterService creates a new writer service. search may be nil.
func NewWriterService(index store.Index, search *SearchService, cfg WriterConfig, m *metrics.Metrics, logger *slog.Logger) *WriterService {
	return &WriterService{
		index:   index,
		search:  search,
		cfg:     cfg.withDefaults(),
		metrics: m,
		logger:  logger,
	}
}

// Apply writes m. A WriteConflict is retried up to MaxAttempts times in total
// with exponential backoff and surfaced once attempts run out.
func (w *WriterService) Apply(ctx context.Context, m domain.Mutation) (domain.ApplyResult, error) {
	start := time.Now()

	var result domain.ApplyResult
	err := retryConflicts(ctx, w.cfg, func() error {
		var err error
		result, err = w.index.Apply(ctx, m)
		return err
	}, func(err error, wait time.Duration) {
		w.metrics.WriteConflictRetried()
		w.logger.Debug("write conflict, retrying",
			"event_id", m.EventID.String(),
			"retry_in", wait,
		)
	})

	if err != nil {
		w.metrics.ObserveApply(string(m.Kind), string(domainerrors.CodeOf(err)), time.Since(start))
		return 0, err
	}
	w.metrics.ObserveApply(string(m.Kind), result.String(), time.Since(start))

	if result == domain.Applied && m.Kind == domain.FactPostMinted && w.search != nil {
		w.search.IndexPost(m.Post)
	}
	return result, nil
}
