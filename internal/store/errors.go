package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	domainerrors "github.com/tasteapp/taste-index/internal/errors"
)

// Sentinel errors.
var (
	ErrPostNotFound    = domainerrors.NotFound("post not found")
	ErrAccountNotFound = domainerrors.NotFound("account not found")
	ErrLikeNotFound    = domainerrors.NotFound("like not found")
	ErrInvalidCursor   = domainerrors.Validation("invalid cursor")
)

// classify maps storage errors onto the index error taxonomy.
// Domain errors and context errors pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var domainErr *domainerrors.Error
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, badger.ErrConflict):
		return domainerrors.WriteConflict(err)
	case errors.Is(err, badger.ErrTxnTooBig):
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "index transaction too large")
	default:
		// Closed DB, blocked writes, disk and I/O failures.
		return domainerrors.StoreUnavailable(err)
	}
}

// corrupt reports a record that could not be decoded.
func corrupt(key []byte, err error) error {
	return domainerrors.Wrapf(err, domainerrors.CodeInternal, "decode record %q", key)
}

// notFound wraps a sentinel with the missing identifier.
func notFound(sentinel *domainerrors.Error, id string) error {
	return sentinel.WithDetails(map[string]string{"id": id}).WithCause(fmt.Errorf("%s", id))
}
