package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// FactKind names the kind of a ledger-confirmed fact.
type FactKind string

const (
	// FactPostMinted is emitted when a post NFT is minted.
	FactPostMinted FactKind = "PostMinted"
	// FactPostLiked is emitted when a like reward is paid.
	FactPostLiked FactKind = "PostLiked"
)

// Valid checks if the kind is known.
func (k FactKind) Valid() bool {
	return k == FactPostMinted || k == FactPostLiked
}

// Fact timestamps must lie in the range the index orders by: Unix nanoseconds
// from the epoch up to the largest int64.
var (
	MinFactTime = time.Unix(0, 0).UTC()
	MaxFactTime = time.Unix(0, math.MaxInt64).UTC()
)

// ValidFactTime reports whether t lies within [MinFactTime, MaxFactTime].
func ValidFactTime(t time.Time) bool {
	return !t.Before(MinFactTime) && !t.After(MaxFactTime)
}

// PostMinted is the payload of a FactPostMinted fact.
type PostMinted struct {
	Creator    string `json:"creator" validate:"required,address"`
	PostID     string `json:"postId" validate:"required,number"`
	ContentRef string `json:"contentRef"`
	ImageRef   string `json:"imageRef,omitempty"`
	Caption    string `json:"caption,omitempty"`
	Category   string `json:"category" validate:"required,category"`
	Rating     *int   `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Reward     Amount `json:"reward"`
}

// PostLiked is the payload of a FactPostLiked fact.
type PostLiked struct {
	PostID  string `json:"postId" validate:"required,number"`
	Liker   string `json:"liker" validate:"required,address"`
	Creator string `json:"creator" validate:"required,address"`
	Reward  Amount `json:"reward"`
}

// Fact is a single ledger-confirmed event. Exactly one of Minted and Liked is set,
// matching Kind.
type Fact struct {
	ID        EventID
	Kind      FactKind
	Timestamp time.Time
	Minted    *PostMinted
	Liked     *PostLiked
}

// NewMintedFact builds a PostMinted fact.
func NewMintedFact(id EventID, ts time.Time, p PostMinted) Fact {
	return Fact{ID: id, Kind: FactPostMinted, Timestamp: ts.UTC(), Minted: &p}
}

// NewLikedFact builds a PostLiked fact.
func NewLikedFact(id EventID, ts time.Time, p PostLiked) Fact {
	return Fact{ID: id, Kind: FactPostLiked, Timestamp: ts.UTC(), Liked: &p}
}

// wireFact is the ledger client wire form: {eventId, kind, payload, timestamp}.
type wireFact struct {
	EventID   EventID         `json:"eventId"`
	Kind      FactKind        `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// MarshalJSON encodes the fact in wire form.
func (f Fact) MarshalJSON() ([]byte, error) {
	var payload any
	switch f.Kind {
	case FactPostMinted:
		payload = f.Minted
	case FactPostLiked:
		payload = f.Liked
	default:
		return nil, fmt.Errorf("fact %s: unknown kind %q", f.ID, f.Kind)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireFact{
		EventID:   f.ID,
		Kind:      f.Kind,
		Payload:   raw,
		Timestamp: f.Timestamp,
	})
}

// UnmarshalJSON decodes the wire form.
func (f *Fact) UnmarshalJSON(data []byte) error {
	var w wireFact
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.EventID.IsZero() {
		return fmt.Errorf("fact: missing eventId")
	}
	decoded := Fact{ID: w.EventID, Kind: w.Kind, Timestamp: w.Timestamp.UTC()}
	switch w.Kind {
	case FactPostMinted:
		var p PostMinted
		if err := json.Unmarshal(w.Payload, &p); err != nil {
			return fmt.Errorf("fact %s: decode payload: %w", w.EventID, err)
		}
		decoded.Minted = &p
	case FactPostLiked:
		var p PostLiked
		if err := json.Unmarshal(w.Payload, &p); err != nil {
			return fmt.Errorf("fact %s: decode payload: %w", w.EventID, err)
		}
		decoded.Liked = &p
	default:
		return fmt.Errorf("fact %s: unknown kind %q", w.EventID, w.Kind)
	}
	*f = decoded
	return nil
}
