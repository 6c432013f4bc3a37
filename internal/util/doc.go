// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across the application.
//
// String helpers are UTF-8 and display-width aware (via go-runewidth), which
// matters for conversation titles and tool result previews shown in a
// terminal. AtomicWriteFile is the crash-safe write used for anything
// persisted to disk.
package util
