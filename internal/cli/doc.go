// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the terminal interface: the interactive chat REPL,
// the one-shot commands (models, pull, servers, status), argument parsing,
// and terminal capability detection.
package cli
