package rsakeys

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/rbac_auth/internal/config"
	"github.com/Skotchmaster/rbac_auth/internal/logging"
)

func TestLoad(t *testing.T) {
	var buf bytes.Buffer
	l := logging.NewWithWriter(&buf, "info")

	kp, err := Load(&config.Config{Environment: config.EnvProduction, RSAPrivateKey: "ignored"}, l)
	require.NoError(t, err)
	assert.Nil(t, kp)

	_, err = Load(&config.Config{Environment: config.EnvLocal}, l)
	require.ErrorIs(t, err, ErrNoKey)

	existing, err := Generate(1024)
	require.NoError(t, err)
	kp, err = Load(&config.Config{Environment: config.EnvStaging, RSAPrivateKey: string(existing.PrivatePEM())}, l)
	require.NoError(t, err)
	assert.Equal(t, existing.PrivatePEM(), kp.PrivatePEM())
	assert.Zero(t, buf.Len())

	kp, err = Load(&config.Config{Environment: config.EnvTesting, RSAEphemeralKey: true}, l)
	require.NoError(t, err)
	require.NotNil(t, kp)
	assert.Contains(t, buf.String(), "rsa_ephemeral_key")
}
