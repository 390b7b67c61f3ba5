package auth

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"aidanwoods.dev/go-paseto"

	domainerrors "github.com/tasteapp/taste-index/internal/errors"
	"github.com/tasteapp/taste-index/internal/id"
)

const (
	tokenIssuer   = "taste-index"
	tokenAudience = "taste-index-operator"
)

// DefaultTokenDuration is the lifetime of an operator token when none is configured.
const DefaultTokenDuration = 30 * 24 * time.Hour

// TokenService issues and verifies operator tokens.
type TokenService struct {
	symmetricKey  paseto.V4SymmetricKey
	tokenDuration time.Duration
	now           func() time.Time
}

// NewTokenService creates a token service from a 32-byte key.
func NewTokenService(key []byte, tokenDuration time.Duration) (*TokenService, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d bytes, got %d", keyLength, len(key))
	}

	symmetricKey, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	if tokenDuration <= 0 {
		tokenDuration = DefaultTokenDuration
	}
	return &TokenService{
		symmetricKey:  symmetricKey,
		tokenDuration: tokenDuration,
		now:           time.Now,
	}, nil
}

// Issue creates an operator token for the named operator.
func (s *TokenService) Issue(operator string) (string, time.Time, error) {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return "", time.Time{}, domainerrors.Validation("operator name is required")
	}

	now := s.now()
	expiresAt := now.Add(s.tokenDuration)

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(operator)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(expiresAt)

	tokenID, err := id.Generate(id.OperatorToken)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	//nolint:errcheck // Token.Set only errors on values that cannot be encoded
	_ = token.Set("operator", operator)

	return token.V4Encrypt(s.symmetricKey, nil), expiresAt, nil
}

// Verify decrypts and checks an operator token. Any failure is Unauthorized.
func (s *TokenService) Verify(tokenString string) (*OperatorClaims, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid operator token").WithCause(err)
	}

	var claims OperatorClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, domainerrors.Unauthorized("invalid operator token").WithCause(err)
	}
	return &claims, nil
}

// TokenDuration returns the configured token lifetime.
func (s *TokenService) TokenDuration() time.Duration {
	return s.tokenDuration
}
