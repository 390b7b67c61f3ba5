package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// EventID identifies a single ledger-confirmed event.
// The pair (TxHash, LogIndex) is globally unique on the ledger.
type EventID struct {
	TxHash   string
	LogIndex uint32
}

// ParseEventID parses the "<txhash>:<logIndex>" form produced by String.
func ParseEventID(s string) (EventID, error) {
	tx, idx, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return EventID{}, fmt.Errorf("event id %q: missing log index", s)
	}
	n, err := strconv.ParseUint(idx, 10, 32)
	if err != nil {
		return EventID{}, fmt.Errorf("event id %q: invalid log index: %w", s, err)
	}
	id := EventID{TxHash: strings.ToLower(tx), LogIndex: uint32(n)}
	if err := id.Validate(); err != nil {
		return EventID{}, err
	}
	return id, nil
}

// Validate checks that the transaction hash is present and well formed.
func (e EventID) Validate() error {
	if e.TxHash == "" {
		return fmt.Errorf("event id: empty transaction hash")
	}
	for _, r := range e.TxHash {
		if !isHashRune(r) {
			return fmt.Errorf("event id: invalid transaction hash %q", e.TxHash)
		}
	}
	return nil
}

func isHashRune(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// IsZero reports whether e is the zero event id, which denotes "before the first event".
func (e EventID) IsZero() bool {
	return e.TxHash == "" && e.LogIndex == 0
}

// String returns the canonical "<txhash>:<logIndex>" form.
func (e EventID) String() string {
	if e.IsZero() {
		return ""
	}
	return strings.ToLower(e.TxHash) + ":" + strconv.FormatUint(uint64(e.LogIndex), 10)
}

// Key returns the form used in storage keys. Keys compare bytewise the same
// way as their (TxHash, LogIndex) pairs: the '.' separator sorts below every
// hash character, so a hash that prefixes another sorts first.
func (e EventID) Key() string {
	return fmt.Sprintf("%s.%010d", strings.ToLower(e.TxHash), e.LogIndex)
}

// MarshalText implements encoding.TextMarshaler.
func (e EventID) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *EventID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*e = EventID{}
		return nil
	}
	parsed, err := ParseEventID(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
