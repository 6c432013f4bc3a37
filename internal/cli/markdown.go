// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// USABILITY: Replies are rendered as markdown on a TTY. Rendering happens
// once the reply is complete so code fences and tables come out whole; with
// rendering disabled the raw text is streamed as it arrives.

var (
	markdownRenderer *glamour.TermRenderer
	markdownOnce     sync.Once
	markdownTheme    = "auto"
)

// SetMarkdownTheme selects the glamour style ("dark", "light", "auto").
// Must be called before the first render.
func SetMarkdownTheme(theme string) {
	markdownTheme = theme
}

// initMarkdown builds the renderer lazily, sized to the current terminal.
func initMarkdown() {
	width := GetTerminalWidth()
	if width > 100 {
		width = 100
	}

	opts := []glamour.TermRendererOption{
		glamour.WithWordWrap(width),
	}
	switch strings.ToLower(markdownTheme) {
	case "dark":
		opts = append(opts, glamour.WithStandardStyle("dark"))
	case "light":
		opts = append(opts, glamour.WithStandardStyle("light"))
	default:
		opts = append(opts, glamour.WithAutoStyle())
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		// Fall back to plain text if the renderer cannot be built.
		markdownRenderer = nil
		return
	}
	markdownRenderer = r
}

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails.
func renderMarkdown(content string) string {
	markdownOnce.Do(initMarkdown)
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
