// Package aggregate derives counter deltas from index mutations and applies
// them to account and post records.
//
// Deltas are computed from the mutation alone so both storage backends apply
// exactly the same changes inside their own atomic unit.
package aggregate

import (
	"slices"
	"strings"
	"time"

	"github.com/tasteapp/taste-index/internal/domain"
)

// AccountDelta is the change to one account.
type AccountDelta struct {
	Address string
	Earned  domain.Amount
	Posts   int64
	Active  time.Time // zero leaves LastActive unchanged
}

// Deltas are all aggregate changes caused by one applied mutation.
type Deltas struct {
	// PostID is the post whose like counter moves, empty if none.
	PostID string
	Likes  int64
	// Accounts are ordered by address.
	Accounts []AccountDelta
}

// Plan returns the deltas for an applied mutation.
//
// A mint credits the creator with one post, the post reward and activity at
// the mint time. A like bumps the post's like counter, credits the creator with
// the like reward and marks the liker active at the like time.
func Plan(m domain.Mutation) Deltas {
	var d Deltas
	switch m.Kind {
	case domain.FactPostMinted:
		if m.Post == nil {
			return d
		}
		d.Accounts = []AccountDelta{{
			Address: m.Post.Creator,
			Earned:  m.Reward,
			Posts:   1,
			Active:  m.Post.CreatedAt,
		}}
	case domain.FactPostLiked:
		if m.Like == nil {
			return d
		}
		d.PostID = m.Like.PostID
		d.Likes = 1
		d.Accounts = merge([]AccountDelta{
			{Address: m.Like.Creator, Earned: m.Reward},
			{Address: m.Like.Liker, Active: m.Like.CreatedAt},
		})
	}
	return d
}

// merge folds deltas for the same address together and sorts by address.
func merge(in []AccountDelta) []AccountDelta {
	out := make([]AccountDelta, 0, len(in))
	for _, d := range in {
		i := slices.IndexFunc(out, func(o AccountDelta) bool { return o.Address == d.Address })
		if i < 0 {
			out = append(out, d)
			continue
		}
		out[i].Earned = out[i].Earned.Add(d.Earned)
		out[i].Posts += d.Posts
		if d.Active.After(out[i].Active) {
			out[i].Active = d.Active
		}
	}
	slices.SortFunc(out, func(a, b AccountDelta) int { return strings.Compare(a.Address, b.Address) })
	return out
}

// ApplyAccount applies d to acct in place. LastActive only moves forward so
// out-of-order delivery converges to the same state.
func ApplyAccount(acct *domain.Account, d AccountDelta) {
	acct.TotalEarned = acct.TotalEarned.Add(d.Earned)
	acct.PostCount += d.Posts
	if d.Active.After(acct.LastActive) {
		acct.LastActive = d.Active
	}
}

// ApplyPost applies the like delta to post in place when it targets it.
func ApplyPost(post *domain.Post, d Deltas) {
	if d.PostID != "" && post.PostID == d.PostID {
		post.LikeCount += d.Likes
	}
}
