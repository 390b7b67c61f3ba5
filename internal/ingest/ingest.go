// Package ingest turns ledger-confirmed facts into index mutations and feeds
// them to the index writer.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tasteapp/taste-index/internal/contentref"
	"github.com/tasteapp/taste-index/internal/domain"
	domainerrors "github.com/tasteapp/taste-index/internal/errors"
	"github.com/tasteapp/taste-index/internal/ledger"
	"github.com/tasteapp/taste-index/internal/metrics"
	"github.com/tasteapp/taste-index/internal/normalize"
	"github.com/tasteapp/taste-index/internal/validation"
)

// CheckpointName is the checkpoint a live feed resumes from.
const CheckpointName = "ingest"

// Writer applies mutations to the index.
type Writer interface {
	Apply(ctx context.Context, m domain.Mutation) (domain.ApplyResult, error)
}

// Checkpointer persists the last delivered event id.
type Checkpointer interface {
	SetCheckpoint(ctx context.Context, name string, id domain.EventID) error
}

// Options configures an Ingestor.
type Options struct {
	// ContentScheme is the scheme every content locator must use.
	ContentScheme string

	// Checkpoints, when set, records each acknowledged delivery under
	// CheckpointName.
	Checkpoints Checkpointer

	// InitialBackoff and MaxBackoff bound the retry delay while the store
	// is unavailable.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultOptions returns options for the ipfs content scheme.
func DefaultOptions() Options {
	return Options{
		ContentScheme:  "ipfs",
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
	}
}

// Ingestor converts facts to mutations. It does not deduplicate; the writer does.
type Ingestor struct {
	writer    Writer
	validator *validation.Validator
	opts      Options
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates an Ingestor.
func New(writer Writer, opts Options, m *metrics.Metrics, logger *slog.Logger) *Ingestor {
	defaults := DefaultOptions()
	if opts.ContentScheme == "" {
		opts.ContentScheme = defaults.ContentScheme
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaults.InitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaults.MaxBackoff
	}
	return &Ingestor{
		writer:    writer,
		validator: validation.New(),
		opts:      opts,
		metrics:   m,
		logger:    logger,
	}
}

// ToMutation validates and normalizes f into the single mutation it produces.
// Malformed content locators fail with InvalidReference, everything else that
// is malformed with Validation.
func (i *Ingestor) ToMutation(f domain.Fact) (domain.Mutation, error) {
	if err := f.ID.Validate(); err != nil {
		return domain.Mutation{}, domainerrors.Validation(err.Error())
	}
	if f.Timestamp.IsZero() {
		return domain.Mutation{}, domainerrors.Validationf("fact %s has no timestamp", f.ID)
	}
	if !domain.ValidFactTime(f.Timestamp) {
		return domain.Mutation{}, domainerrors.Validationf("fact %s timestamp %s is outside the indexable range",
			f.ID, f.Timestamp.UTC().Format(time.RFC3339)).
			WithDetails(map[string]string{"timestamp": "must be between 1970-01-01 and 2262-04-11"})
	}

	switch f.Kind {
	case domain.FactPostMinted:
		if f.Minted == nil {
			return domain.Mutation{}, domainerrors.Validationf("fact %s has no PostMinted payload", f.ID)
		}
		return i.mintMutation(f.ID, f.Timestamp.UTC(), f.Minted)
	case domain.FactPostLiked:
		if f.Liked == nil {
			return domain.Mutation{}, domainerrors.Validationf("fact %s has no PostLiked payload", f.ID)
		}
		return i.likeMutation(f.ID, f.Timestamp.UTC(), f.Liked)
	default:
		return domain.Mutation{}, domainerrors.Validationf("fact %s has unknown kind %q", f.ID, f.Kind)
	}
}

func (i *Ingestor) mintMutation(id domain.EventID, at time.Time, p *domain.PostMinted) (domain.Mutation, error) {
	if err := i.validator.Validate(p); err != nil {
		return domain.Mutation{}, err
	}

	postID, err := parsePostID(p.PostID)
	if err != nil {
		return domain.Mutation{}, err
	}

	contentRef, err := contentref.Resolve(p.ContentRef, i.opts.ContentScheme)
	if err != nil {
		return domain.Mutation{}, err
	}
	imageRef, err := contentref.ResolveOptional(p.ImageRef, i.opts.ContentScheme)
	if err != nil {
		return domain.Mutation{}, err
	}

	caption := normalize.Text(p.Caption)
	if normalize.Length(caption) > domain.MaxCaptionLength {
		return domain.Mutation{}, domainerrors.Validationf("caption exceeds %d characters", domain.MaxCaptionLength).
			WithDetails(map[string]string{"caption": "too long"})
	}

	category, _ := domain.ParseCategory(p.Category)

	var rating *int
	if p.Rating != nil {
		r := *p.Rating
		rating = &r
	}

	post := &domain.Post{
		PostID:     postID,
		Creator:    normalize.Address(p.Creator),
		ContentRef: contentRef,
		ImageRef:   imageRef,
		Caption:    caption,
		Category:   category,
		Rating:     rating,
		CreatedAt:  at,
		EventID:    id,
	}
	return domain.Mutation{
		EventID: id,
		Kind:    domain.FactPostMinted,
		At:      at,
		Post:    post,
		Reward:  p.Reward,
	}, nil
}

func (i *Ingestor) likeMutation(id domain.EventID, at time.Time, p *domain.PostLiked) (domain.Mutation, error) {
	if err := i.validator.Validate(p); err != nil {
		return domain.Mutation{}, err
	}

	postID, err := parsePostID(p.PostID)
	if err != nil {
		return domain.Mutation{}, err
	}

	like := &domain.Like{
		PostID:    postID,
		Liker:     normalize.Address(p.Liker),
		Creator:   normalize.Address(p.Creator),
		Reward:    p.Reward,
		CreatedAt: at,
		EventID:   id,
	}
	return domain.Mutation{
		EventID: id,
		Kind:    domain.FactPostLiked,
		At:      at,
		Like:    like,
		Reward:  p.Reward,
	}, nil
}

func parsePostID(raw string) (string, error) {
	id, err := domain.ParsePostID(raw)
	if err != nil {
		return "", domainerrors.Validation(err.Error()).
			WithDetails(map[string]string{"postId": "must be an unsigned integer"})
	}
	return id, nil
}

// Ingest converts f and applies it.
func (i *Ingestor) Ingest(ctx context.Context, f domain.Fact) (domain.ApplyResult, error) {
	m, err := i.ToMutation(f)
	if err != nil {
		return 0, err
	}
	return i.writer.Apply(ctx, m)
}

// Run drives feed until ctx ends or the feed is closed.
//
// A delivery is acknowledged once the writer returned a result or rejected the
// fact for good. While the store is unavailable the same delivery is retried
// with backoff and stays unacknowledged. Any other failure stops Run without
// acknowledging, so the fact is redelivered on the next start.
func (i *Ingestor) Run(ctx context.Context, feed ledger.Feed) error {
	i.logger.Info("ingest started", "content_scheme", i.opts.ContentScheme)
	defer i.logger.Info("ingest stopped")

	for {
		d, err := feed.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ledger.ErrClosed) {
				return nil
			}
			return fmt.Errorf("next fact: %w", err)
		}

		if err := i.deliver(ctx, d); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (i *Ingestor) deliver(ctx context.Context, d ledger.Delivery) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = i.opts.InitialBackoff
	b.MaxInterval = i.opts.MaxBackoff
	b.MaxElapsedTime = 0

	var result domain.ApplyResult
	err := backoff.RetryNotify(func() error {
		var err error
		result, err = i.Ingest(ctx, d.Fact)
		if err != nil && !domainerrors.CodeOf(err).Retryable() {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		i.metrics.StoreUnavailableRetried()
		i.logger.Warn("index unavailable, retrying fact",
			"event_id", d.Fact.ID.String(),
			"retry_in", wait,
			"error", err,
		)
	})

	switch code := domainerrors.CodeOf(err); {
	case err == nil:
		i.logger.Debug("fact ingested", "event_id", d.Fact.ID.String(), "result", result.String())
	case code.Terminal():
		i.metrics.FactRejected(string(code))
		i.logger.Warn("fact rejected",
			"event_id", d.Fact.ID.String(),
			"kind", d.Fact.Kind,
			"code", code,
			"error", err,
		)
	default:
		return fmt.Errorf("ingest fact %s: %w", d.Fact.ID, err)
	}

	if err := d.Ack(ctx); err != nil {
		return fmt.Errorf("ack fact %s: %w", d.Fact.ID, err)
	}
	if i.opts.Checkpoints != nil {
		if err := i.opts.Checkpoints.SetCheckpoint(ctx, CheckpointName, d.Fact.ID); err != nil {
			i.logger.Warn("failed to persist ingest checkpoint", "event_id", d.Fact.ID.String(), "error", err)
		}
	}
	return nil
}
