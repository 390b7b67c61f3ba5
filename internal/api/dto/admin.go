package dto

import (
	"time"

	"github.com/tasteapp/taste-index/internal/domain"
)

// FactSubmission is the result of submitting a confirmed fact.
type FactSubmission struct {
	EventID string `json:"event_id" doc:"Ledger event id of the fact"`
	Status  string `json:"status" enum:"applied,already_applied,processing" doc:"Indexing outcome"`
}

// RepairReport summarizes a reconcile run.
type RepairReport struct {
	RunID          string    `json:"run_id" doc:"Reconcile run id"`
	Since          string    `json:"since,omitempty" doc:"Event id the run started after"`
	LastEventID    string    `json:"last_event_id,omitempty" doc:"Last event processed"`
	Scanned        int       `json:"scanned" doc:"Facts read from the ledger"`
	Applied        int       `json:"applied" doc:"Facts that changed the index"`
	AlreadyApplied int       `json:"already_applied" doc:"Facts already indexed"`
	Rejected       int       `json:"rejected" doc:"Facts rejected as invalid"`
	StartedAt      time.Time `json:"started_at" doc:"Run start"`
	FinishedAt     time.Time `json:"finished_at" doc:"Run end"`
}

// NewRepairReport converts a domain report.
func NewRepairReport(r *domain.RepairReport) RepairReport {
	out := RepairReport{
		RunID:          r.RunID,
		Scanned:        r.Scanned,
		Applied:        r.Applied,
		AlreadyApplied: r.AlreadyApplied,
		Rejected:       r.Rejected,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
	}
	if !r.Since.IsZero() {
		out.Since = r.Since.String()
	}
	if !r.LastEventID.IsZero() {
		out.LastEventID = r.LastEventID.String()
	}
	return out
}

// IndexStats are record counts of the index.
type IndexStats struct {
	Posts           int64  `json:"posts" doc:"Indexed posts"`
	Likes           int64  `json:"likes" doc:"Indexed likes"`
	Accounts        int64  `json:"accounts" doc:"Known accounts"`
	ProcessedEvents int64  `json:"processed_events" doc:"Ledger events processed"`
	Checkpoint      string `json:"checkpoint,omitempty" doc:"Last event reconciled"`
}
