// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for finchat.
//
// Configuration is TOML with sensible defaults and environment variable
// overrides. File location: ~/.finchat/config.toml (override with
// FINCHAT_CONFIG).
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/finquill/finchat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete finchat configuration.
type Config struct {
	// Server holds backend connection settings.
	Server ServerConfig `toml:"server"`

	// UI holds terminal interface settings.
	UI UIConfig `toml:"ui"`

	// Archive holds local transcript archive settings.
	Archive ArchiveConfig `toml:"archive"`

	// Watch holds drop-folder upload settings.
	Watch WatchConfig `toml:"watch"`
}

// ServerConfig contains backend connection settings.
type ServerConfig struct {
	// BaseURL is the backend API base URL, including the /api prefix.
	BaseURL string `toml:"base_url"`
	// TimeoutSecs is the per-request timeout. Message generation runs a
	// full retrieval pipeline server-side, so keep this generous.
	TimeoutSecs int `toml:"timeout_secs"`
	// RefreshMarketOnStart triggers a stock data refresh when the app
	// starts.
	RefreshMarketOnStart bool `toml:"refresh_market_on_start"`
}

// UIConfig contains terminal interface settings.
type UIConfig struct {
	// Theme selects the color theme: "dark", "light", or "auto".
	Theme string `toml:"theme"`
	// ShowTimestamps displays per-message timestamps in transcripts.
	ShowTimestamps bool `toml:"show_timestamps"`
	// ShowStats displays generation time under assistant replies.
	ShowStats bool `toml:"show_stats"`
	// Plain forces the line-based REPL instead of the full-screen TUI.
	Plain bool `toml:"plain"`
}

// ArchiveConfig contains local transcript archive settings.
type ArchiveConfig struct {
	// Enabled turns on the local SQLite transcript archive.
	Enabled bool `toml:"enabled"`
	// Path is the archive database path (empty = ~/.finchat/archive.db).
	Path string `toml:"path"`
}

// WatchConfig contains drop-folder upload settings.
type WatchConfig struct {
	// Enabled turns on the drop-folder watcher. PDFs dropped into Dir
	// are uploaded to the active session automatically.
	Enabled bool `toml:"enabled"`
	// Dir is the folder to watch (empty = ~/.finchat/uploads).
	Dir string `toml:"dir"`
}

// =============================================================================
// DEFAULTS AND PATHS
// =============================================================================

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:     "http://localhost:8000/api",
			TimeoutSecs: 120,
		},
		UI: UIConfig{
			Theme:     "auto",
			ShowStats: true,
		},
		Archive: ArchiveConfig{
			Enabled: true,
		},
	}
}

// Dir returns the finchat configuration directory (~/.finchat),
// creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".finchat")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("cannot create config directory: %w", err)
	}
	return dir, nil
}

// Path returns the config file location, honoring FINCHAT_CONFIG.
func Path() (string, error) {
	if p := os.Getenv("FINCHAT_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads configuration from disk, layering file values over the
// defaults and environment overrides over both. A missing file is not
// an error; the defaults apply.
func Load() (*Config, error) {
	cfg := Default()

	path, err := Path()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg on top of its current values.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// Save writes the configuration atomically to its default path.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0o600)
}

// ApplyEnvOverrides applies FINCHAT_* environment variables on top of
// whatever was loaded.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("FINCHAT_SERVER_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("FINCHAT_TIMEOUT_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Server.TimeoutSecs = secs
		}
	}
	if v := os.Getenv("FINCHAT_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("FINCHAT_PLAIN"); v == "1" || v == "true" {
		c.UI.Plain = true
	}
	if v := os.Getenv("FINCHAT_ARCHIVE"); v == "0" || v == "false" {
		c.Archive.Enabled = false
	}
	if v := os.Getenv("FINCHAT_WATCH_DIR"); v != "" {
		c.Watch.Enabled = true
		c.Watch.Dir = v
	}
}

// SetDefaults fills in derived defaults for fields left empty.
func (c *Config) SetDefaults() {
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = Default().Server.BaseURL
	}
	if c.Server.TimeoutSecs <= 0 {
		c.Server.TimeoutSecs = Default().Server.TimeoutSecs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = "auto"
	}
	if c.Archive.Enabled && c.Archive.Path == "" {
		if dir, err := Dir(); err == nil {
			c.Archive.Path = filepath.Join(dir, "archive.db")
		}
	}
	if c.Watch.Enabled && c.Watch.Dir == "" {
		if dir, err := Dir(); err == nil {
			c.Watch.Dir = filepath.Join(dir, "uploads")
		}
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.base_url %q is not a valid URL", c.Server.BaseURL)
	}
	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		return fmt.Errorf("ui.theme %q is not one of dark, light, auto", c.UI.Theme)
	}
	return nil
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSecs) * time.Second
}
