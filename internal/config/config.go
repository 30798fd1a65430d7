// Package config loads the runtime configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Deployment modes. In hosted mode provider credentials come exclusively
// from deployment-managed environment variables; in standalone mode they
// may also be stored per team.
const (
	ModeHosted     = "hosted"
	ModeStandalone = "standalone"
)

// ProviderConfig holds a user-supplied credential for one provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	APIBase string `yaml:"api_base"`
}

// Config is the root configuration.
type Config struct {
	Mode        string `yaml:"mode"`
	PostgresDSN string `yaml:"postgres_dsn"`
	Workspace   string `yaml:"workspace"`

	Providers map[string]ProviderConfig `yaml:"providers"`

	// FallbackModel is the logical model substituted when the primary
	// backend fails a completion (empty = no fallback).
	FallbackModel string `yaml:"fallback_model"`

	Metering MeteringConfig `yaml:"metering"`

	Heartbeat HeartbeatConfig `yaml:"heartbeat"`

	// ToolRateLimit is the max tool executions per minute per agent
	// (0 = unlimited).
	ToolRateLimit int `yaml:"tool_rate_limit"`

	// MemoryDBPath is the SQLite path for the knowledge-base store.
	MemoryDBPath string `yaml:"memory_db_path"`
}

// MeteringConfig controls credit metering.
type MeteringConfig struct {
	Enabled bool `yaml:"enabled"`
}

// HeartbeatConfig holds scheduler defaults.
type HeartbeatConfig struct {
	// DefaultIntervalSeconds is applied when an agent has no interval set.
	DefaultIntervalSeconds int `yaml:"default_interval_seconds"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".crewd")
	return &Config{
		Mode:      ModeStandalone,
		Workspace: filepath.Join(base, "workspace"),
		Providers: map[string]ProviderConfig{},
		Metering: MeteringConfig{
			Enabled: true,
		},
		Heartbeat: HeartbeatConfig{
			DefaultIntervalSeconds: 1800,
		},
		MemoryDBPath: filepath.Join(base, "memory.db"),
	}
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	if cfg.Mode != ModeHosted {
		cfg.Mode = ModeStandalone
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CREWD_MODE"); v != "" {
		c.Mode = v
	}
	if v := os.Getenv("CREWD_POSTGRES_DSN"); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv("CREWD_WORKSPACE"); v != "" {
		c.Workspace = v
	}
	if v := os.Getenv("CREWD_FALLBACK_MODEL"); v != "" {
		c.FallbackModel = v
	}
	if v := os.Getenv("CREWD_METERING"); v != "" {
		c.Metering.Enabled = v != "0" && v != "false"
	}
	if v := os.Getenv("CREWD_TOOL_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ToolRateLimit = n
		}
	}
}

// IsHosted returns true when running in hosted deployment mode.
func (c *Config) IsHosted() bool { return c.Mode == ModeHosted }
