// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the self-hosted
// server components (the signaling relay and the managed TURN
// credential issuer).
//
// Configuration is loaded from a single file specified by:
//   - DOULA_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
// Client-side preferences (signaling mode, ICE presets) live in
// lib/settings instead; this package is server-only.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration.
type Config struct {
	// Relay configures the signaling mailbox relay.
	Relay RelayConfig `yaml:"relay"`

	// TURN configures managed TURN credential issuing.
	TURN TURNConfig `yaml:"turn"`
}

// RelayConfig configures the signaling mailbox relay.
type RelayConfig struct {
	// Listen is the HTTP listen address.
	// Default: :8844
	Listen string `yaml:"listen"`

	// Database is the SQLite file holding in-flight mailbox slots.
	// Default: ${HOME}/.local/state/doula/relay.db
	Database string `yaml:"database"`

	// TTL is how long a posted blob stays retrievable, in Go duration
	// syntax ("10m", "1h").
	// Default: 10m
	TTL string `yaml:"ttl"`
}

// ParseTTL returns the TTL as a duration.
func (r RelayConfig) ParseTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(r.TTL)
	if err != nil {
		return 0, fmt.Errorf("relay.ttl: %w", err)
	}
	return ttl, nil
}

// TURNConfig configures the managed TURN relay credentials. The
// shared secret must match the coturn `static-auth-secret` so the
// time-limited usernames the client derives verify on the server.
type TURNConfig struct {
	// Account names this deployment in issued usernames.
	Account string `yaml:"account"`

	// SecretPath is the file holding the shared secret. The secret
	// itself never appears in the config file.
	SecretPath string `yaml:"secret_path"`
}

// Default returns the default configuration. These defaults are used
// as a base before loading the config file.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Relay: RelayConfig{
			Listen:   ":8844",
			Database: filepath.Join(homeDir, ".local", "state", "doula", "relay.db"),
			TTL:      "10m",
		},
	}
}

// Load loads configuration from the DOULA_CONFIG environment variable.
//
// There are no fallbacks — if DOULA_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("DOULA_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("DOULA_CONFIG environment variable not set; " +
			"set it to the path of your doula.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values. The only expansion performed is
// ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Relay.Database = expandVars(c.Relay.Database, vars)
	c.TURN.SecretPath = expandVars(c.TURN.SecretPath, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Relay.Listen == "" {
		errs = append(errs, fmt.Errorf("relay.listen is required"))
	}
	if c.Relay.Database == "" {
		errs = append(errs, fmt.Errorf("relay.database is required"))
	}
	if ttl, err := c.Relay.ParseTTL(); err != nil {
		errs = append(errs, err)
	} else if ttl <= 0 {
		errs = append(errs, fmt.Errorf("relay.ttl must be positive"))
	}
	if c.TURN.Account != "" && c.TURN.SecretPath == "" {
		errs = append(errs, fmt.Errorf("turn.secret_path is required when turn.account is set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the relay database's parent directory.
func (c *Config) EnsurePaths() error {
	dir := filepath.Dir(c.Relay.Database)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
