// Package config loads node configuration from environment variables,
// adapted in place from the teacher's pkg/config.go (the same
// DefaultConfig/LoadFromEnv/Validate shape), with RPCPort and the RPC
// surface dropped (spec.md S1 Non-goals: "no RPC server") and mining/P2P
// fields renamed to match pochain's model -- a single recipient pubkey
// rather than an address, and one P2P HTTP port rather than a separate
// P2P binary-protocol port.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// NodeConfig holds all configuration for a pochain node.
type NodeConfig struct {
	NodeID string

	// Network
	ListenPort   int      // P2P/HTTP listen port
	PublicURL    string   // base URL other peers dial to reach us
	InitialPeers []string // bootstrap peer base URLs

	// Storage
	DataDir string

	// Mining
	MiningEnabled bool
	MinerKeyFile  string // path to a PEM public key file for mining rewards
	PollInterval  time.Duration

	// Logging
	LogLevel string // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *NodeConfig {
	return &NodeConfig{
		NodeID:        "pochain-node",
		ListenPort:    8080,
		PublicURL:     "http://localhost:8080",
		InitialPeers:  []string{},
		DataDir:       "./data/node",
		MiningEnabled: false,
		MinerKeyFile:  "",
		PollInterval:  2 * time.Second,
		LogLevel:      "info",
	}
}

// LoadFromEnv loads configuration from environment variables, falling
// back to DefaultConfig for anything unset.
func LoadFromEnv() *NodeConfig {
	cfg := DefaultConfig()

	if nodeID := os.Getenv("NODE_ID"); nodeID != "" {
		cfg.NodeID = nodeID
	}
	if port := os.Getenv("LISTEN_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.ListenPort = p
		}
	}
	if url := os.Getenv("PUBLIC_URL"); url != "" {
		cfg.PublicURL = url
	}
	if peers := os.Getenv("INITIAL_PEERS"); peers != "" {
		cfg.InitialPeers = strings.Split(peers, ",")
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if miningEnabled := os.Getenv("MINING_ENABLED"); miningEnabled != "" {
		cfg.MiningEnabled = strings.ToLower(miningEnabled) == "true"
	}
	if keyFile := os.Getenv("MINER_KEY_FILE"); keyFile != "" {
		cfg.MinerKeyFile = keyFile
	}
	if interval := os.Getenv("POLL_INTERVAL_SECONDS"); interval != "" {
		if seconds, err := strconv.Atoi(interval); err == nil {
			cfg.PollInterval = time.Duration(seconds) * time.Second
		}
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return cfg
}

// Validate checks if the configuration is internally consistent.
func (c *NodeConfig) Validate() error {
	if c.ListenPort < 1 || c.ListenPort > 65535 {
		return fmt.Errorf("invalid listen port: %d", c.ListenPort)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}
	if c.MiningEnabled && c.MinerKeyFile == "" {
		return fmt.Errorf("miner key file required when mining is enabled")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}

// String returns a human-readable rendering of the configuration.
func (c *NodeConfig) String() string {
	return fmt.Sprintf(`pochain node configuration:
  Node ID:        %s
  Listen Port:    %d
  Public URL:     %s
  Data Directory: %s
  Mining Enabled: %v
  Miner Key File: %s
  Poll Interval:  %v
  Log Level:      %s
  Initial Peers:  %v`,
		c.NodeID,
		c.ListenPort,
		c.PublicURL,
		c.DataDir,
		c.MiningEnabled,
		c.MinerKeyFile,
		c.PollInterval,
		c.LogLevel,
		c.InitialPeers,
	)
}

// ListenAddress returns the address an http.Server should bind to.
func (c *NodeConfig) ListenAddress() string {
	return fmt.Sprintf(":%d", c.ListenPort)
}
