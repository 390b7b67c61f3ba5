package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"

	domainerrors "github.com/tasteapp/taste-index/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode domainerrors.Code
	}{
		{
			name:     "conflict becomes write conflict",
			err:      badger.ErrConflict,
			wantCode: domainerrors.CodeWriteConflict,
		},
		{
			name:     "wrapped conflict becomes write conflict",
			err:      fmt.Errorf("commit: %w", badger.ErrConflict),
			wantCode: domainerrors.CodeWriteConflict,
		},
		{
			name:     "closed db becomes store unavailable",
			err:      badger.ErrDBClosed,
			wantCode: domainerrors.CodeStoreUnavailable,
		},
		{
			name:     "io failure becomes store unavailable",
			err:      errors.New("write: no space left on device"),
			wantCode: domainerrors.CodeStoreUnavailable,
		},
		{
			name:     "oversized transaction is internal",
			err:      badger.ErrTxnTooBig,
			wantCode: domainerrors.CodeInternal,
		},
		{
			name:     "domain errors pass through",
			err:      domainerrors.InvalidLike("self like"),
			wantCode: domainerrors.CodeInvalidLike,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, domainerrors.CodeOf(classify(tt.err)))
		})
	}
}

func TestClassify_PassesThroughContextErrors(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.ErrorIs(t, classify(context.Canceled), context.Canceled)
	assert.ErrorIs(t, classify(context.DeadlineExceeded), context.DeadlineExceeded)
}

func TestNotFound_KeepsCodeAndIdentifier(t *testing.T) {
	err := notFound(ErrPostNotFound, "42")

	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.Contains(t, err.Error(), "42")
}
