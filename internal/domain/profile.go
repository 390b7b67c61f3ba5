package domain

import "time"

// MaxDisplayNameLength is the maximum display name length in characters.
const MaxDisplayNameLength = 30

// Account is the per-address aggregate record.
// TotalEarned, PostCount and LastActive are maintained by the aggregate
// maintainer; DisplayName and AvatarRef by profile edits.
type Account struct {
	Address     string    `json:"address"`
	TotalEarned Amount    `json:"total_earned"`
	PostCount   int64     `json:"post_count"`
	LastActive  time.Time `json:"last_active"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarRef   string    `json:"avatar_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewAccount creates an empty account for a normalized address.
func NewAccount(address string, now time.Time) *Account {
	return &Account{
		Address:   address,
		CreatedAt: now,
	}
}

// ProfileUpdate carries the user-editable account fields.
// Nil fields are left unchanged.
type ProfileUpdate struct {
	DisplayName *string
	AvatarRef   *string
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.DisplayName == nil && u.AvatarRef == nil
}

// ApplyProfile applies a profile update and marks the account active at now.
func (a *Account) ApplyProfile(u ProfileUpdate, now time.Time) {
	if u.DisplayName != nil {
		a.DisplayName = *u.DisplayName
	}
	if u.AvatarRef != nil {
		a.AvatarRef = *u.AvatarRef
	}
	if now.After(a.LastActive) {
		a.LastActive = now
	}
}
