package domain

import "time"

// ApplyResult is the outcome of applying a mutation to the index.
type ApplyResult int

const (
	// Applied means the mutation took effect now.
	Applied ApplyResult = iota + 1
	// AlreadyApplied means the event (or an equivalent like) was already in the index.
	AlreadyApplied
)

// String returns the wire name of the result.
func (r ApplyResult) String() string {
	switch r {
	case Applied:
		return "applied"
	case AlreadyApplied:
		return "already_applied"
	default:
		return "unknown"
	}
}

// Mutation is one index write derived from exactly one fact.
// For FactPostMinted Post is set; for FactPostLiked Like is set.
type Mutation struct {
	EventID EventID
	Kind    FactKind
	At      time.Time
	Post    *Post
	Like    *Like
	Reward  Amount
}

// RepairReport summarizes a reconcile run.
type RepairReport struct {
	RunID          string    `json:"run_id"`
	Since          EventID   `json:"since"`
	LastEventID    EventID   `json:"last_event_id"`
	Scanned        int       `json:"scanned"`
	Applied        int       `json:"applied"`
	AlreadyApplied int       `json:"already_applied"`
	Rejected       int       `json:"rejected"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}
