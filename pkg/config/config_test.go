package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable LoadFromEnv reads, scoped to t via
// t.Setenv so it is restored automatically once the test completes.
// LoadFromEnv treats an empty value the same as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"NODE_ID", "LISTEN_PORT", "PUBLIC_URL", "INITIAL_PEERS", "DATA_DIR",
		"MINING_ENABLED", "MINER_KEY_FILE", "POLL_INTERVAL_SECONDS", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnvFallsBackToDefaults(t *testing.T) {
	clearEnv(t)
	cfg := LoadFromEnv()
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFromEnvOverridesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("NODE_ID", "node-a")
	t.Setenv("LISTEN_PORT", "9090")
	t.Setenv("PUBLIC_URL", "http://node-a:9090")
	t.Setenv("INITIAL_PEERS", "http://peer-a,http://peer-b")
	t.Setenv("MINING_ENABLED", "true")
	t.Setenv("MINER_KEY_FILE", "/tmp/miner.pem")
	t.Setenv("POLL_INTERVAL_SECONDS", "5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := LoadFromEnv()
	require.Equal(t, "node-a", cfg.NodeID)
	require.Equal(t, 9090, cfg.ListenPort)
	require.Equal(t, "http://node-a:9090", cfg.PublicURL)
	require.Equal(t, []string{"http://peer-a", "http://peer-b"}, cfg.InitialPeers)
	require.True(t, cfg.MiningEnabled)
	require.Equal(t, "/tmp/miner.pem", cfg.MinerKeyFile)
	require.Equal(t, 5*time.Second, cfg.PollInterval)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestValidateRejectsOutOfRangePort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenPort = 0
	require.Error(t, cfg.Validate())

	cfg.ListenPort = 70000
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsMiningWithoutKeyFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MiningEnabled = true
	cfg.MinerKeyFile = ""
	require.Error(t, cfg.Validate())

	cfg.MinerKeyFile = "/tmp/miner.pem"
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "verbose"
	require.Error(t, cfg.Validate())
}

func TestListenAddressFormatsPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenPort = 8081
	require.Equal(t, ":8081", cfg.ListenAddress())
}
