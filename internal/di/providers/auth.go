package providers

import (
	"github.com/samber/do/v2"

	"github.com/tasteapp/taste-index/internal/auth"
	"github.com/tasteapp/taste-index/internal/config"
	"github.com/tasteapp/taste-index/internal/logger"
)

// AuthKey wraps the operator token key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the operator token key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Index.DataPath)
	if err != nil {
		return nil, err
	}

	cfg.Auth.OperatorTokenKey = key

	log.Info("Operator token key loaded",
		"path", auth.KeyPath(cfg.Index.DataPath),
		"token_duration", cfg.Auth.OperatorTokenDuration,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO operator token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService([]byte(authKey), cfg.Auth.OperatorTokenDuration)
}
