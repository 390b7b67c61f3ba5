// Package normalize provides utilities for normalizing and sanitizing index input.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// addressPattern matches a lower-cased ledger account address.
var addressPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

// Address returns the canonical form of a wallet address: trimmed and lower-cased.
// Every address crossing into the index goes through here so one wallet never
// shows up as two accounts.
func Address(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// IsAddress reports whether s is a canonical address.
func IsAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// Text normalizes free text to NFC, drops control characters other than
// newlines and tabs, and trims surrounding whitespace.
func Text(raw string) string {
	s := norm.NFC.String(raw)
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// Length returns the number of characters in s.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}
