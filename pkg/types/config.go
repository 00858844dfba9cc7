package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the server configuration. Values come from a YAML file and
// may be overridden by CLI flags.
type Config struct {
	// ListenAddr is the address for the HTTP API (e.g. ":3000").
	ListenAddr string `yaml:"listen_addr"`

	// DataDir is the directory holding the registry database.
	DataDir string `yaml:"data_dir"`

	// AuthMode is "gateway" or "noauth".
	AuthMode AuthMode `yaml:"auth_mode"`

	// PeerTimeout bounds each outbound peer call (connect + read).
	PeerTimeout time.Duration `yaml:"peer_timeout"`

	// FanoutLimit caps concurrent outbound peer calls.
	FanoutLimit int `yaml:"fanout_limit"`

	// HealthInterval is how often peers are probed; zero disables probing.
	HealthInterval time.Duration `yaml:"health_interval"`

	// RateLimit is the sustained per-client request rate; zero disables
	// rate limiting. RateBurst is the short-term burst allowance.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`

	// Log controls level and format of the structured logger.
	Log LogConfig `yaml:"log"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:     ":3000",
		DataDir:        "./fedsearch-data",
		AuthMode:       AuthModeNoAuth,
		PeerTimeout:    10 * time.Second,
		FanoutLimit:    10,
		HealthInterval: 30 * time.Second,
		RateBurst:      20,
		Log:            LogConfig{Level: "info", JSON: true},
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.AuthMode != AuthModeGateway && c.AuthMode != AuthModeNoAuth {
		return fmt.Errorf("invalid auth_mode %q (want gateway or noauth)", c.AuthMode)
	}
	if c.FanoutLimit <= 0 {
		return fmt.Errorf("fanout_limit must be positive")
	}
	if c.PeerTimeout <= 0 {
		return fmt.Errorf("peer_timeout must be positive")
	}
	return nil
}
