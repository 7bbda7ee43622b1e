package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ilofleet/sentinel/internal/constants"
	"github.com/ilofleet/sentinel/internal/ipaddr"
)

// Loader resolves config.yaml's location and applies the env-var
// overlay on top of it.
type Loader struct {
	homeDir string
}

// NewLoader resolves the config directory in this order:
//  1. ILOSENTINEL_CONFIG environment variable.
//  2. The user's home directory (~/).
//  3. /tmp/ilosentinel-fallback, for containerized environments without
//     a home directory — Load still returns defaults plus env overrides
//     from this path.
func NewLoader() (*Loader, error) {
	if dir := os.Getenv(constants.ConfigEnvVar); dir != "" {
		return &Loader{homeDir: dir}, nil
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		return &Loader{homeDir: homeDir}, nil
	}

	return &Loader{homeDir: "/tmp/ilosentinel-fallback"}, nil
}

// ConfigPath returns the path to config.yaml.
func (l *Loader) ConfigPath() string {
	return filepath.Join(l.homeDir, constants.DefaultDir, constants.ConfigFile)
}

// Load reads config.yaml if present, falls back to DefaultConfig
// otherwise, applies environment variable overrides, and validates the
// result.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	path := l.ConfigPath()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// No file on disk; defaults plus env overrides only.
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := LoadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: env overlay: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the fatal-at-boot invariant: an unparseable or
// non-contiguous network configuration must stop the process before
// any scheduler starts.
func Validate(cfg *Config) error {
	if cfg.ILO.Network.BaseIP == 0 {
		return fmt.Errorf("config: %w: ilo.network.base_ip is not set", ipaddr.ErrInvalidNetworkConfig)
	}
	if cfg.ILO.Network.SubnetMask.PrefixLen() == 0 {
		return fmt.Errorf("config: %w: ilo.network.subnet_mask is not set", ipaddr.ErrInvalidNetworkConfig)
	}
	if _, err := ipaddr.NewSubnet(cfg.ILO.Network.BaseIP, cfg.ILO.Network.SubnetMask); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.ILO.ClientTimeoutConnectMs <= 0 {
		return fmt.Errorf("config: ilo.client_timeout_connect_ms must be positive")
	}
	if cfg.ILO.ClientTimeoutReadMs <= 0 {
		return fmt.Errorf("config: ilo.client_timeout_read_ms must be positive")
	}
	return nil
}
