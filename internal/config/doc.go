// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for the MCP-HIVE terminal
// client.
//
// # Configuration Precedence
//
// Settings are resolved from (highest precedence first):
//   - Environment variables (MCPHIVE_*)
//   - ~/.mcphive/config.toml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	url := cfg.Backend.URL
//	model := cfg.Chat.DefaultModel
//
// A Watcher can be attached to pick up edits to the config file while the
// client is running.
package config
