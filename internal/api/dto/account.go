package dto

import (
	"time"

	"github.com/tasteapp/taste-index/internal/domain"
)

// Account is a user account with its derived totals.
type Account struct {
	Address     string     `json:"address" doc:"Lower-case wallet address"`
	DisplayName string     `json:"display_name,omitempty" doc:"Display name"`
	AvatarRef   string     `json:"avatar_ref,omitempty" doc:"Content locator of the avatar"`
	TotalEarned string     `json:"total_earned" doc:"Total rewards earned, base units as a decimal string"`
	PostCount   int64      `json:"post_count" doc:"Number of minted posts"`
	LastActive  *time.Time `json:"last_active,omitempty" doc:"Last mint, like or profile edit"`
	CreatedAt   *time.Time `json:"created_at,omitempty" doc:"First time the account was seen"`
	Exists      bool       `json:"exists" doc:"Whether the index has seen this address"`
}

// NewAccount converts a domain account. Unknown accounts get zero totals.
func NewAccount(a *domain.Account, exists bool) Account {
	out := Account{
		Address:     a.Address,
		DisplayName: a.DisplayName,
		AvatarRef:   a.AvatarRef,
		TotalEarned: a.TotalEarned.String(),
		PostCount:   a.PostCount,
		Exists:      exists,
	}
	if !a.LastActive.IsZero() {
		t := a.LastActive
		out.LastActive = &t
	}
	if !a.CreatedAt.IsZero() {
		t := a.CreatedAt
		out.CreatedAt = &t
	}
	return out
}

// UpdateProfileRequest is the request body for a profile edit.
// Omitted fields are left unchanged; an empty avatar_ref clears the avatar.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty" maxLength:"120" doc:"New display name, at most 30 characters after normalization"`
	AvatarRef   *string `json:"avatar_ref,omitempty" maxLength:"256" doc:"Content locator of the new avatar"`
}

// LeaderboardEntry is one ranked account.
type LeaderboardEntry struct {
	Rank        int       `json:"rank" doc:"Position in leaderboard, starting at 1"`
	Address     string    `json:"address" doc:"Wallet address"`
	DisplayName string    `json:"display_name,omitempty" doc:"Display name"`
	AvatarRef   string    `json:"avatar_ref,omitempty" doc:"Content locator of the avatar"`
	TotalEarned string    `json:"total_earned" doc:"Total rewards earned"`
	PostCount   int64     `json:"post_count" doc:"Number of minted posts"`
	LastActive  time.Time `json:"last_active" doc:"Last activity"`
}

// Leaderboard is a ranked list of accounts.
type Leaderboard struct {
	Window  string             `json:"window" doc:"all or recent"`
	Since   *time.Time         `json:"since,omitempty" doc:"Start of the recent window"`
	Entries []LeaderboardEntry `json:"entries" doc:"Ranked entries"`
}

// NewLeaderboard converts a domain leaderboard.
func NewLeaderboard(b *domain.Leaderboard) Leaderboard {
	out := Leaderboard{
		Window:  string(b.Window),
		Entries: make([]LeaderboardEntry, len(b.Entries)),
	}
	if !b.Since.IsZero() {
		since := b.Since
		out.Since = &since
	}
	for i, e := range b.Entries {
		out.Entries[i] = LeaderboardEntry{
			Rank:        e.Rank,
			Address:     e.Address,
			DisplayName: e.DisplayName,
			AvatarRef:   e.AvatarRef,
			TotalEarned: e.TotalEarned.String(),
			PostCount:   e.PostCount,
			LastActive:  e.LastActive,
		}
	}
	return out
}
