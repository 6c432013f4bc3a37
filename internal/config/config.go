// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for the
// MCP-HIVE terminal client.
//
// Configuration comes from ~/.mcphive/config.toml, with environment variable
// overrides applied on top and built-in defaults filling any gaps.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Capskiller/MCP-HIVE-IHM/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete client configuration.
type Config struct {
	// Backend connection settings
	Backend BackendConfig `toml:"backend"`

	// Chat behavior
	Chat ChatConfig `toml:"chat"`

	// Terminal rendering
	UI UIConfig `toml:"ui"`

	// Local conversation history
	History HistoryConfig `toml:"history"`
}

// BackendConfig contains MCP-HIVE backend connection settings.
type BackendConfig struct {
	// URL is the base URL of the backend API
	URL string `toml:"url"`
	// TimeoutSecs is the request timeout for non-streaming calls, in seconds.
	// Streaming requests are not bounded by this timeout.
	TimeoutSecs int `toml:"timeout_secs"`
}

// ChatConfig contains chat behavior settings.
type ChatConfig struct {
	// DefaultModel is the model requested on new exchanges.
	// Empty lets the backend pick its configured default.
	DefaultModel string `toml:"default_model"`
}

// UIConfig contains terminal rendering settings.
type UIConfig struct {
	// Theme is the glamour style used for markdown: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// RenderMarkdown renders completed replies as markdown when on a TTY
	RenderMarkdown bool `toml:"render_markdown"`
	// ShowTokens displays token counts after each reply
	ShowTokens bool `toml:"show_tokens"`
	// ShowToolCalls displays tool executions inline as they happen
	ShowToolCalls bool `toml:"show_tool_calls"`
}

// HistoryConfig contains local conversation archive settings.
type HistoryConfig struct {
	// Enabled controls whether conversations are archived to disk
	Enabled bool `toml:"enabled"`
	// Path is the SQLite archive file (empty = ~/.mcphive/history.db)
	Path string `toml:"path"`
	// MaxConversations caps how many conversations are kept in the
	// archive; the oldest are pruned first. 0 means unlimited.
	MaxConversations int `toml:"max_conversations"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:         "http://127.0.0.1:8000",
			TimeoutSecs: 30,
		},
		Chat: ChatConfig{
			DefaultModel: "",
		},
		UI: UIConfig{
			Theme:          "auto",
			RenderMarkdown: true,
			ShowTokens:     true,
			ShowToolCalls:  true,
		},
		History: HistoryConfig{
			Enabled:          true,
			Path:             "",
			MaxConversations: 200,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".mcphive"), nil
}

// Path returns the path to the TOML config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// HistoryPath resolves the archive path, falling back to the default
// location under the config directory.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file if present, applies
// environment overrides, and validates the result. A missing file is not an
// error; defaults are used.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. A missing file yields defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults. Zero values that
// are legitimate settings (ShowTokens=false, MaxConversations=0) are left
// alone; only values with no sensible zero meaning are filled.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.Backend.URL == "" {
		c.Backend.URL = defaults.Backend.URL
	}
	if c.Backend.TimeoutSecs == 0 {
		c.Backend.TimeoutSecs = defaults.Backend.TimeoutSecs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies MCPHIVE_* environment variables on top of the
// loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("MCPHIVE_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("MCPHIVE_MODEL"); v != "" {
		c.Chat.DefaultModel = v
	}
	if v := os.Getenv("MCPHIVE_TIMEOUT_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Backend.TimeoutSecs = secs
		}
	}
	if v := os.Getenv("MCPHIVE_HISTORY_PATH"); v != "" {
		c.History.Path = v
	}
	if v := os.Getenv("MCPHIVE_THEME"); v != "" {
		c.UI.Theme = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil {
		return fmt.Errorf("backend.url %q is not a valid URL: %w", c.Backend.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.url %q must use http or https", c.Backend.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("backend.url %q has no host", c.Backend.URL)
	}

	if c.Backend.TimeoutSecs < 1 {
		return fmt.Errorf("backend.timeout_secs must be at least 1, got %d", c.Backend.TimeoutSecs)
	}

	switch strings.ToLower(c.UI.Theme) {
	case "dark", "light", "auto":
	default:
		return fmt.Errorf("ui.theme %q must be one of: dark, light, auto", c.UI.Theme)
	}

	if c.History.MaxConversations < 0 {
		return fmt.Errorf("history.max_conversations cannot be negative, got %d", c.History.MaxConversations)
	}

	return nil
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes the configuration to the default config file atomically.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to a specific path atomically.
func (c *Config) SaveTo(path string) error {
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	// 0600: the file may one day carry credentials; start restrictive.
	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
