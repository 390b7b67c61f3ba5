package domain

import "time"

// LeaderboardWindow selects which accounts are ranked.
type LeaderboardWindow string

const (
	// LeaderboardWindowAll ranks every account.
	LeaderboardWindowAll LeaderboardWindow = "all"
	// LeaderboardWindowRecent ranks accounts active within the trailing window.
	LeaderboardWindowRecent LeaderboardWindow = "recent"
)

// DefaultRecentWindow is the trailing duration of the recent leaderboard.
const DefaultRecentWindow = 7 * 24 * time.Hour

// Valid checks if the window is valid.
func (w LeaderboardWindow) Valid() bool {
	switch w {
	case LeaderboardWindowAll, LeaderboardWindowRecent:
		return true
	default:
		return false
	}
}

// LeaderboardEntry represents a single account's ranking.
type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	Address     string    `json:"address"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarRef   string    `json:"avatar_ref,omitempty"`
	TotalEarned Amount    `json:"total_earned"`
	PostCount   int64     `json:"post_count"`
	LastActive  time.Time `json:"last_active"`
}

// Leaderboard contains the ranked entries for one window.
type Leaderboard struct {
	Window  LeaderboardWindow
	Since   time.Time // zero for the all-time window
	Entries []LeaderboardEntry
}
