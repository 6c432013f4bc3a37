// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short unchanged", "bonjour", 10, "bonjour"},
		{"exact fits", "bonjour", 7, "bonjour"},
		{"truncated with ellipsis", "conversation", 8, "conve..."},
		{"tiny limit no ellipsis", "bonjour", 3, "bon"},
		{"zero limit", "bonjour", 0, ""},
		{"accented runes", "réévaluées", 7, "réév..."},
		{"empty input", "", 5, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := TruncateRunes(tc.in, tc.max); got != tc.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
			}
		})
	}
}

func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"narrow text unchanged", "salut", 10, "salut"},
		{"narrow text truncated", "conversation", 8, "conve..."},
		{"zero width", "salut", 0, ""},
		// Each CJK rune takes two columns.
		{"wide runes counted double", "你好世界", 5, "你..."},
		{"wide runes fit", "你好", 4, "你好"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := TruncateWidth(tc.in, tc.max); got != tc.want {
				t.Errorf("TruncateWidth(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
			}
		})
	}
}

func TestPadRight(t *testing.T) {
	if got := PadRight("abc", 6); got != "abc   " {
		t.Errorf("PadRight = %q", got)
	}
	if got := PadRight("abcdef", 3); got != "abcdef" {
		t.Errorf("wider strings should pass through: %q", got)
	}
	// Each CJK rune spans two columns, so only two spaces are added.
	if got := PadRight("你好", 6); got != "你好  " {
		t.Errorf("PadRight(你好, 6) = %q", got)
	}
}

func TestFirstLine(t *testing.T) {
	if got := FirstLine("un\ndeux\ntrois"); got != "un" {
		t.Errorf("FirstLine = %q", got)
	}
	if got := FirstLine("sans retour"); got != "sans retour" {
		t.Errorf("FirstLine = %q", got)
	}
}

// =============================================================================
// CONVERSION TESTS
// =============================================================================

func TestFormatMillis(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "0ms"},
		{850, "850ms"},
		{999, "999ms"},
		{1000, "1.0s"},
		{2300, "2.3s"},
		{61500, "61.5s"},
	}

	for _, tc := range tests {
		if got := FormatMillis(tc.ms); got != tc.want {
			t.Errorf("FormatMillis(%d) = %q, want %q", tc.ms, got, tc.want)
		}
	}
}

func TestInt64ToString(t *testing.T) {
	if got := Int64ToString(-7); got != "-7" {
		t.Errorf("Int64ToString = %q", got)
	}
}

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")

	if err := AtomicWriteFile(path, []byte("premier"), 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "premier" {
		t.Errorf("content = %q", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	// Overwrite replaces the content in full.
	if err := AtomicWriteFile(path, []byte("second"), 0600); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "second" {
		t.Errorf("content after overwrite = %q", data)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the target file", len(entries))
	}
}
