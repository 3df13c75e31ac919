package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/pabliki/pabliki-server/internal/api"
	"github.com/pabliki/pabliki-server/internal/auth"
	"github.com/pabliki/pabliki-server/internal/config"
	"github.com/pabliki/pabliki-server/internal/logger"
	"github.com/pabliki/pabliki-server/internal/ratelimit"
)

// AuthKey is the PASETO signing key.
type AuthKey []byte

// ProvideAuthKey loads the signing key from the data directory, creating it on first run.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Data.BasePath)
	if err != nil {
		return nil, fmt.Errorf("load auth key: %w", err)
	}
	log.Info("Auth key loaded")
	return AuthKey(key), nil
}

// ProvideTokenService provides the access/refresh token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService(key, cfg.Auth.AccessTokenDuration, cfg.Auth.RefreshTokenDuration)
}

// AuthLimiterHandle wraps the auth endpoint limiter with shutdown capability.
type AuthLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *AuthLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideAuthLimiter provides the per-IP limiter for register, login and refresh.
func ProvideAuthLimiter(i do.Injector) (*AuthLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &AuthLimiterHandle{
		KeyedRateLimiter: api.NewRateLimiter(cfg.RateLimit.AuthPerMinute, cfg.RateLimit.AuthBurst),
	}, nil
}
