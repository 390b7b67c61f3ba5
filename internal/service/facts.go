package service

import (
	"context"
	"log/slog"

	"github.com/tasteapp/taste-index/internal/domain"
	domainerrors "github.com/tasteapp/taste-index/internal/errors"
	"github.com/tasteapp/taste-index/internal/ingest"
)

// SubmissionStatus is what a submitter of a confirmed fact is told.
type SubmissionStatus string

const (
	StatusApplied        SubmissionStatus = "applied"
	StatusAlreadyApplied SubmissionStatus = "already_applied"
	// StatusProcessing means the fact is confirmed but not yet indexed;
	// reconcile or the live feed will index it.
	StatusProcessing SubmissionStatus = "processing"
)

// FactService accepts confirmed facts pushed by an operator.
type FactService struct {
	ingestor *ingest.Ingestor
	logger   *slog.Logger
}

// NewFactService creates a new fact service.
func NewFactService(ingestor *ingest.Ingestor, logger *slog.Logger) *FactService {
	return &FactService{ingestor: ingestor, logger: logger}
}

// Submit ingests f. Rejections are returned as errors; an unavailable store
// is not an error for the submitter since the fact is already on the ledger.
func (s *FactService) Submit(ctx context.Context, f domain.Fact) (SubmissionStatus, error) {
	result, err := s.ingestor.Ingest(ctx, f)
	switch {
	case err == nil && result == domain.Applied:
		return StatusApplied, nil
	case err == nil:
		return StatusAlreadyApplied, nil
	case domainerrors.CodeOf(err) == domainerrors.CodeStoreUnavailable:
		s.logger.Warn("index unavailable, fact left for reconcile", "event_id", f.ID.String(), "error", err)
		return StatusProcessing, nil
	default:
		return "", err
	}
}
