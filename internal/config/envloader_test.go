package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilofleet/sentinel/internal/ipaddr"
)

func TestLoadFromEnv_OverridesScalarFields(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("ILOSENTINEL_LOG_LEVEL", "debug")
	t.Setenv("ILOSENTINEL_SYSTEM_OBFUSCATE_SECRETS", "false")
	t.Setenv("ILOSENTINEL_ILO_CLIENT_TIMEOUT_CONNECT_MS", "3500")

	require.NoError(t, LoadFromEnv(cfg))

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.System.ObfuscateSecrets)
	assert.Equal(t, 3500, cfg.ILO.ClientTimeoutConnectMs)
}

func TestLoadFromEnv_UsesSetterForIPTypes(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("ILOSENTINEL_ILO_NETWORK_BASE_IP", "10.1.2.0")
	t.Setenv("ILOSENTINEL_ILO_NETWORK_SUBNET_MASK", "255.255.255.0")

	require.NoError(t, LoadFromEnv(cfg))

	expectedBase, err := ipaddr.ParseIPv4("10.1.2.0")
	require.NoError(t, err)
	assert.Equal(t, expectedBase, cfg.ILO.Network.BaseIP)
	assert.Equal(t, 24, cfg.ILO.Network.SubnetMask.PrefixLen())
}

func TestLoadFromEnv_RejectsInvalidIP(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("ILOSENTINEL_ILO_NETWORK_BASE_IP", "not-an-ip")

	err := LoadFromEnv(cfg)
	require.Error(t, err)
}

func TestLoadFromEnv_LeavesUnsetFieldsAlone(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, LoadFromEnv(cfg))
	assert.Equal(t, DefaultConfig().Log.Level, cfg.Log.Level)
}
