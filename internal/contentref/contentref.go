// Package contentref validates and canonicalizes locators of content stored
// outside the index, such as "ipfs://<cid>".
package contentref

import (
	"regexp"
	"strings"

	domainerrors "github.com/tasteapp/taste-index/internal/errors"
)

// MaxBodyLength bounds the part of a locator after the scheme.
const MaxBodyLength = 512

var (
	schemePattern = regexp.MustCompile(`^[a-z][a-z0-9+.\-]*$`)
	bodyPattern   = regexp.MustCompile(`^[A-Za-z0-9._\-/]+$`)
)

// Resolve validates raw against expectedScheme and returns the canonical
// locator "scheme://body". Both "scheme:body" and "scheme://body" are accepted.
// The scheme is compared case-insensitively; the body is kept as given because
// content identifiers are case-sensitive.
func Resolve(raw, expectedScheme string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domainerrors.InvalidReference("content reference is empty")
	}

	scheme, body, ok := strings.Cut(raw, ":")
	if !ok || scheme == "" {
		return "", domainerrors.InvalidReferencef("content reference %q has no scheme", raw)
	}
	scheme = strings.ToLower(scheme)
	if !schemePattern.MatchString(scheme) {
		return "", domainerrors.InvalidReferencef("content reference %q has a malformed scheme", raw)
	}
	if expected := strings.ToLower(expectedScheme); scheme != expected {
		return "", domainerrors.InvalidReferencef("content reference scheme %q, expected %q", scheme, expected)
	}

	body = strings.TrimPrefix(body, "//")
	switch {
	case body == "":
		return "", domainerrors.InvalidReferencef("content reference %q has an empty body", raw)
	case len(body) > MaxBodyLength:
		return "", domainerrors.InvalidReferencef("content reference body exceeds %d characters", MaxBodyLength)
	case !bodyPattern.MatchString(body):
		return "", domainerrors.InvalidReferencef("content reference %q contains invalid characters", raw)
	case strings.HasPrefix(body, "/"):
		return "", domainerrors.InvalidReferencef("content reference %q has an empty authority", raw)
	}

	return scheme + "://" + body, nil
}

// ResolveOptional is like Resolve but accepts an empty reference, returning "".
func ResolveOptional(raw, expectedScheme string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return Resolve(raw, expectedScheme)
}
