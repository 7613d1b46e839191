package rsakeys

import (
	"errors"
	"log/slog"

	"github.com/Skotchmaster/rbac_auth/internal/config"
)

var ErrNoKey = errors.New("rsa login is enabled but no private key is configured (set RSA_PRIVATE_KEY, RSA_PRIVATE_KEY_FILE or RSA_EPHEMERAL_KEY=true)")

// Load returns the login key pair for debug environments and nil otherwise.
func Load(cfg *config.Config, l *slog.Logger) (*KeyPair, error) {
	if !cfg.Environment.IsDebug() {
		return nil, nil
	}
	if cfg.RSAPrivateKey != "" {
		return Parse([]byte(cfg.RSAPrivateKey))
	}
	if !cfg.RSAEphemeralKey {
		return nil, ErrNoKey
	}

	l.Warn("rsa_ephemeral_key",
		"reason", "generated a per-process key; clients behind a load balancer will fail to decrypt across instances")
	return Generate(DefaultBits)
}
