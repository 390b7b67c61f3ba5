package auth

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/tasteapp/taste-index/internal/errors"
)

func TestLoadOrGenerateKey(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	key, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Len(t, key, keyLength)

	info, err := os.Stat(KeyPath(dir))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	loaded, err := LoadKey(dir)
	require.NoError(t, err)
	assert.Equal(t, key, loaded)
}

func TestLoadKey_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadKey(dir)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(KeyPath(dir), []byte("abc"), 0o600))
	_, err = LoadKey(dir)
	assert.ErrorContains(t, err, "invalid auth key length")

	require.NoError(t, os.WriteFile(KeyPath(dir), []byte(strings.Repeat("z", keyHexLength)), 0o600))
	_, err = LoadOrGenerateKey(dir)
	assert.ErrorContains(t, err, "not valid hex")
}

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	key, err := hex.DecodeString(strings.Repeat("ab", keyLength))
	require.NoError(t, err)
	svc, err := NewTokenService(key, time.Hour)
	require.NoError(t, err)
	return svc
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc := newTestTokenService(t)

	token, expiresAt, err := svc.Issue("  indexer-ops ")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v4.local."))
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "indexer-ops", claims.Operator)
	assert.Equal(t, "indexer-ops", claims.Subject)
	assert.WithinDuration(t, expiresAt, claims.ExpiresAt, time.Second)
	assert.True(t, strings.HasPrefix(claims.TokenID, "op-"))
}

func TestTokenService_Rejections(t *testing.T) {
	svc := newTestTokenService(t)
	token, _, err := svc.Issue("ops")
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Verify("not-a-token")
		assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
	})

	t.Run("other key", func(t *testing.T) {
		key, err := hex.DecodeString(strings.Repeat("cd", keyLength))
		require.NoError(t, err)
		other, err := NewTokenService(key, time.Hour)
		require.NoError(t, err)

		_, err = other.Verify(token)
		assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
	})

	t.Run("expired", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { svc.now = time.Now }()

		_, err := svc.Verify(token)
		assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
	})

	t.Run("empty operator", func(t *testing.T) {
		_, _, err := svc.Issue(" ")
		assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
	})
}

func TestNewTokenService_KeyLength(t *testing.T) {
	_, err := NewTokenService(make([]byte, 16), time.Hour)
	assert.Error(t, err)

	svc, err := NewTokenService(make([]byte, keyLength), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenDuration, svc.TokenDuration())
}
