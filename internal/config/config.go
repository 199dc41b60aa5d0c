// Package config provides configuration management for signerd: the daemon
// Config type, its defaults, environment-variable overrides, and a
// slog-backed file Logger.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/signerd/internal/network"
)

// Config is the daemon's full configuration.
type Config struct {
	Version      int            `yaml:"version"`
	Home         string         `yaml:"home"`
	ListenAddr   string         `yaml:"listen_addr"`
	Origins      []string       `yaml:"origins"`
	AllowRestart bool           `yaml:"allow_restart"`
	Networks     NetworksConfig `yaml:"networks"`
	Security     SecurityConfig `yaml:"security"`
	Logging      LoggingConfig  `yaml:"logging"`
}

// NetworksConfig resolves the on-disk data/parameter directories for each
// network this signer manages.
type NetworksConfig struct {
	DataDir   string `yaml:"data_dir"`
	ParamsDir string `yaml:"params_dir"`
}

// SecurityConfig controls the argon2id password-hashing cost parameters
// and the authorization retry cadence.
type SecurityConfig struct {
	ArgonTimeCost       uint32 `yaml:"argon_time_cost"`
	ArgonMemoryKiB      uint32 `yaml:"argon_memory_kib"`
	ArgonThreads        uint8  `yaml:"argon_threads"`
	PasswordRetryMillis int    `yaml:"password_retry_millis"`
	MemoryLock          bool   `yaml:"memory_lock"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
	JSON  bool   `yaml:"json"`
}

// Load reads configuration from path, applying Defaults for any field the
// file does not set.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated CLI/home-dir resolution
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Path returns the default config file path under home.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// DefaultHome returns the default signerd home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".signerd"
	}
	return filepath.Join(home, ".signerd")
}

// StatePath returns the per-network encrypted state file path.
func (c *Config) StatePath(n network.Network) string {
	return filepath.Join(c.Networks.DataDir, "storage-"+n.String()+".dat")
}

// ParamsPath returns the per-network proving-parameter directory.
func (c *Config) ParamsPath(n network.Network) string {
	return filepath.Join(c.Networks.ParamsDir, n.String())
}

// GetLoggingLevel returns the configured logging level string.
func (c *Config) GetLoggingLevel() string { return c.Logging.Level }

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string { return c.Logging.File }
