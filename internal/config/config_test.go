// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// DEFAULTS TESTS
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Backend.URL != "http://127.0.0.1:8000" {
		t.Errorf("Backend.URL = %q", cfg.Backend.URL)
	}
	if cfg.Backend.TimeoutSecs != 30 {
		t.Errorf("TimeoutSecs = %d", cfg.Backend.TimeoutSecs)
	}
	if cfg.UI.Theme != "auto" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
	if !cfg.UI.RenderMarkdown || !cfg.UI.ShowTokens || !cfg.UI.ShowToolCalls {
		t.Error("UI features should default on")
	}
	if !cfg.History.Enabled || cfg.History.MaxConversations != 200 {
		t.Errorf("History = %+v", cfg.History)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

// =============================================================================
// LOADING TESTS
// =============================================================================

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if cfg.Backend.URL != "http://127.0.0.1:8000" {
		t.Errorf("Backend.URL = %q, want default", cfg.Backend.URL)
	}
}

func TestLoadFromPath_ReadsTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[backend]
url = "http://backend.local:9000"
timeout_secs = 60

[chat]
default_model = "mistral"

[ui]
theme = "dark"
render_markdown = false

[history]
enabled = false
max_conversations = 10
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Backend.URL != "http://backend.local:9000" || cfg.Backend.TimeoutSecs != 60 {
		t.Errorf("Backend = %+v", cfg.Backend)
	}
	if cfg.Chat.DefaultModel != "mistral" {
		t.Errorf("DefaultModel = %q", cfg.Chat.DefaultModel)
	}
	if cfg.UI.Theme != "dark" || cfg.UI.RenderMarkdown {
		t.Errorf("UI = %+v", cfg.UI)
	}
	if cfg.History.Enabled || cfg.History.MaxConversations != 10 {
		t.Errorf("History = %+v", cfg.History)
	}
}

func TestLoadFromPath_PartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[chat]
default_model = "llama3"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Chat.DefaultModel != "llama3" {
		t.Errorf("DefaultModel = %q", cfg.Chat.DefaultModel)
	}
	if cfg.Backend.URL == "" || cfg.Backend.TimeoutSecs == 0 || cfg.UI.Theme == "" {
		t.Errorf("missing sections should be filled with defaults: %+v", cfg)
	}
}

func TestLoadFromPath_MalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("not [valid toml"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Error("expected an error for malformed TOML")
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDE TESTS
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("MCPHIVE_BACKEND_URL", "http://env.local:7000")
	t.Setenv("MCPHIVE_MODEL", "phi3")
	t.Setenv("MCPHIVE_TIMEOUT_SECS", "120")
	t.Setenv("MCPHIVE_HISTORY_PATH", "/tmp/env-history.db")
	t.Setenv("MCPHIVE_THEME", "light")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Backend.URL != "http://env.local:7000" {
		t.Errorf("Backend.URL = %q", cfg.Backend.URL)
	}
	if cfg.Chat.DefaultModel != "phi3" {
		t.Errorf("DefaultModel = %q", cfg.Chat.DefaultModel)
	}
	if cfg.Backend.TimeoutSecs != 120 {
		t.Errorf("TimeoutSecs = %d", cfg.Backend.TimeoutSecs)
	}
	if cfg.History.Path != "/tmp/env-history.db" {
		t.Errorf("History.Path = %q", cfg.History.Path)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
}

func TestApplyEnvOverrides_InvalidTimeoutIgnored(t *testing.T) {
	t.Setenv("MCPHIVE_TIMEOUT_SECS", "abc")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if cfg.Backend.TimeoutSecs != 30 {
		t.Errorf("TimeoutSecs = %d, want untouched default", cfg.Backend.TimeoutSecs)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[backend]\nurl = \"http://file.local\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MCPHIVE_BACKEND_URL", "http://env.local")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend.URL != "http://env.local" {
		t.Errorf("Backend.URL = %q, env should win", cfg.Backend.URL)
	}
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"https url", func(c *Config) { c.Backend.URL = "https://mcp.example.com" }, false},
		{"ftp scheme", func(c *Config) { c.Backend.URL = "ftp://x" }, true},
		{"no host", func(c *Config) { c.Backend.URL = "http://" }, true},
		{"zero timeout", func(c *Config) { c.Backend.TimeoutSecs = 0 }, true},
		{"bad theme", func(c *Config) { c.UI.Theme = "solarized" }, true},
		{"theme case insensitive", func(c *Config) { c.UI.Theme = "Dark" }, false},
		{"negative history cap", func(c *Config) { c.History.MaxConversations = -1 }, true},
		{"unlimited history", func(c *Config) { c.History.MaxConversations = 0 }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected a validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// =============================================================================
// SAVE TESTS
// =============================================================================

func TestSaveToAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Chat.DefaultModel = "mistral"
	cfg.UI.Theme = "dark"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Chat.DefaultModel != "mistral" || loaded.UI.Theme != "dark" {
		t.Errorf("roundtrip lost fields: %+v", loaded)
	}
}

func TestHistoryPath_Explicit(t *testing.T) {
	cfg := Default()
	cfg.History.Path = "/data/custom.db"

	path, err := cfg.HistoryPath()
	if err != nil {
		t.Fatal(err)
	}
	if path != "/data/custom.db" {
		t.Errorf("HistoryPath = %q", path)
	}
}
