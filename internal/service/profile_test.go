package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasteapp/taste-index/internal/domain"
	domainerrors "github.com/tasteapp/taste-index/internal/errors"
	"github.com/tasteapp/taste-index/internal/store/storetest"
)

func strPtr(s string) *string { return &s }

func setupProfile(t *testing.T) (*ProfileService, *pipeline) {
	t.Helper()
	p := setupPipeline(t)
	svc := NewProfileService(p.store, "ipfs", DefaultWriterConfig(), discardLogger())
	svc.now = func() time.Time { return storetest.Base.Add(time.Hour) }
	return svc, p
}

func TestProfileService_CreatesAccount(t *testing.T) {
	svc, _ := setupProfile(t)

	acct, err := svc.UpdateProfile(context.Background(), strings.ToUpper(storetest.Addr(1)), UpdateProfileRequest{
		DisplayName: strPtr("  Chef Ana  "),
		AvatarRef:   strPtr("ipfs:bafyavatar"),
	})
	require.NoError(t, err)

	assert.Equal(t, storetest.Addr(1), acct.Address)
	assert.Equal(t, "Chef Ana", acct.DisplayName)
	assert.Equal(t, "ipfs://bafyavatar", acct.AvatarRef)
	assert.Equal(t, storetest.Base.Add(time.Hour), acct.LastActive)
}

func TestProfileService_KeepsDerivedCounters(t *testing.T) {
	svc, p := setupProfile(t)
	ctx := context.Background()
	creator := storetest.Addr(1)
	mustIngest(t, p,
		mintFact(1, creator, "1", domain.CategoryCook, storetest.Base, "x"),
		likeFact(2, "1", storetest.Addr(2), creator, storetest.Base, 3),
	)

	acct, err := svc.UpdateProfile(ctx, creator, UpdateProfileRequest{DisplayName: strPtr("Ana")})
	require.NoError(t, err)
	assert.Equal(t, "3", acct.TotalEarned.String())
	assert.Equal(t, int64(1), acct.PostCount)

	acct, err = svc.UpdateProfile(ctx, creator, UpdateProfileRequest{AvatarRef: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "Ana", acct.DisplayName)
	assert.Empty(t, acct.AvatarRef)
}

func TestProfileService_Rejections(t *testing.T) {
	svc, _ := setupProfile(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		address string
		req     UpdateProfileRequest
		code    domainerrors.Code
	}{
		{"bad address", "ana", UpdateProfileRequest{DisplayName: strPtr("Ana")}, domainerrors.CodeValidation},
		{"name too long", storetest.Addr(1), UpdateProfileRequest{DisplayName: strPtr(strings.Repeat("a", 31))}, domainerrors.CodeValidation},
		{"bad avatar", storetest.Addr(1), UpdateProfileRequest{AvatarRef: strPtr("https://x/y.png")}, domainerrors.CodeInvalidReference},
		{"empty edit", storetest.Addr(1), UpdateProfileRequest{}, domainerrors.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateProfile(ctx, tt.address, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, domainerrors.CodeOf(err))
		})
	}
}

func TestProfileService_NameAtLimit(t *testing.T) {
	svc, _ := setupProfile(t)

	acct, err := svc.UpdateProfile(context.Background(), storetest.Addr(1), UpdateProfileRequest{
		DisplayName: strPtr(strings.Repeat("é", domain.MaxDisplayNameLength)),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MaxDisplayNameLength, len([]rune(acct.DisplayName)))
}

func TestProfileService_RetriesWriteConflict(t *testing.T) {
	idx := &conflictIndex{Index: setupTestStore(t), conflicts: 2}
	svc := NewProfileService(idx, "ipfs", fastWriterConfig(), discardLogger())

	acct, err := svc.UpdateProfile(context.Background(), storetest.Addr(1), UpdateProfileRequest{DisplayName: strPtr("Ana")})
	require.NoError(t, err)
	assert.Equal(t, "Ana", acct.DisplayName)
	assert.Equal(t, 3, idx.calls)
}

func TestProfileService_SurfacesConflictAfterMaxAttempts(t *testing.T) {
	idx := &conflictIndex{Index: setupTestStore(t), conflicts: 100}
	svc := NewProfileService(idx, "ipfs", fastWriterConfig(), discardLogger())

	_, err := svc.UpdateProfile(context.Background(), storetest.Addr(1), UpdateProfileRequest{DisplayName: strPtr("Ana")})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeWriteConflict, domainerrors.CodeOf(err))
	assert.Equal(t, fastWriterConfig().MaxAttempts, idx.calls)
}

func TestProfileService_ConcurrentEditsOnOneAccount(t *testing.T) {
	p := setupPipeline(t)
	svc := NewProfileService(p.store, "ipfs", WriterConfig{
		MaxAttempts:    50,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
	}, discardLogger())
	ctx := context.Background()
	addr := storetest.Addr(1)

	const editors = 32
	errs := make([]error, editors)
	var wg sync.WaitGroup
	for n := range editors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[n] = svc.UpdateProfile(ctx, addr, UpdateProfileRequest{DisplayName: strPtr(fmt.Sprintf("chef %d", n))})
		}()
	}
	wg.Wait()

	for n, err := range errs {
		assert.NoError(t, err, "editor %d", n)
	}

	acct, err := p.store.GetAccount(ctx, addr)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(acct.DisplayName, "chef "))
}
