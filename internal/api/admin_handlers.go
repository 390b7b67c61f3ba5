package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tasteapp/taste-index/internal/api/dto"
	"github.com/tasteapp/taste-index/internal/domain"
	domainerrors "github.com/tasteapp/taste-index/internal/errors"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "runReconcile",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/reconcile",
		Summary:     "Run reconcile",
		Description: "Replays ledger facts after the given event id, or after the stored checkpoint, through the writer. Requires an operator token",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRunReconcile)
}

// === DTOs ===

// RunReconcileInput selects where a reconcile starts.
type RunReconcileInput struct {
	Since string `query:"since" doc:"Event id to start after; omit to resume from the checkpoint"`
	Full  bool   `query:"full" doc:"Replay from the first fact"`
}

// RepairReportOutput wraps a reconcile report for Huma.
type RepairReportOutput struct {
	Body dto.RepairReport
}

// === Handlers ===

func (s *Server) handleRunReconcile(ctx context.Context, input *RunReconcileInput) (*RepairReportOutput, error) {
	operator, err := s.RequireOperator(ctx)
	if err != nil {
		return nil, err
	}

	var since *domain.EventID
	switch {
	case input.Full && input.Since != "":
		return nil, domainerrors.Validation("since and full are mutually exclusive")
	case input.Full:
		since = &domain.EventID{}
	case input.Since != "":
		id, err := domain.ParseEventID(input.Since)
		if err != nil {
			return nil, domainerrors.Validationf("invalid since: %v", err)
		}
		since = &id
	}

	s.logger.Info("reconcile requested", "operator", operator, "since", input.Since, "full", input.Full)

	report, err := s.services.Reconcile.Reconcile(ctx, since)
	if err != nil {
		return nil, err
	}
	return &RepairReportOutput{Body: dto.NewRepairReport(report)}, nil
}
