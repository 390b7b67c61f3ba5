package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tasteapp/taste-index/internal/api/dto"
	"github.com/tasteapp/taste-index/internal/domain"
	domainerrors "github.com/tasteapp/taste-index/internal/errors"
	"github.com/tasteapp/taste-index/internal/service"
)

// maxFactSize bounds a submitted fact body.
const maxFactSize = 16 << 10

func (s *Server) registerFactRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:  "submitFact",
		Method:       http.MethodPost,
		Path:         "/api/v1/facts",
		Summary:      "Submit a confirmed fact",
		Description:  "Indexes one ledger-confirmed PostMinted or PostLiked fact. Returns 202 with status processing when the index is unavailable. Requires an operator token",
		Tags:         []string{"Facts"},
		Security:     []map[string][]string{{"bearer": {}}},
		MaxBodyBytes: maxFactSize,
	}, s.handleSubmitFact)
}

// === DTOs ===

// SubmitFactInput carries a fact in ledger wire form:
// {"eventId":"<txhash>:<logIndex>","kind":"PostMinted","payload":{...},"timestamp":"..."}.
type SubmitFactInput struct {
	RawBody []byte `contentType:"application/json"`
}

// SubmitFactOutput wraps a submission result for Huma.
type SubmitFactOutput struct {
	Status int
	Body   dto.FactSubmission
}

// === Handlers ===

func (s *Server) handleSubmitFact(ctx context.Context, input *SubmitFactInput) (*SubmitFactOutput, error) {
	operator, err := s.RequireOperator(ctx)
	if err != nil {
		return nil, err
	}

	var fact domain.Fact
	if err := json.Unmarshal(input.RawBody, &fact); err != nil {
		return nil, domainerrors.Validationf("malformed fact: %v", err)
	}

	status, err := s.services.Facts.Submit(ctx, fact)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("fact submitted",
		"operator", operator,
		"event_id", fact.ID.String(),
		"status", status,
	)

	code := http.StatusOK
	if status == service.StatusProcessing {
		code = http.StatusAccepted
	}
	return &SubmitFactOutput{
		Status: code,
		Body: dto.FactSubmission{
			EventID: fact.ID.String(),
			Status:  string(status),
		},
	}, nil
}
