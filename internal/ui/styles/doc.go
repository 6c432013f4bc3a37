// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles defines the adaptive color palette shared by every part of
// the terminal interface. Styles built on these colors live next to the code
// that renders with them; only the palette is centralized here.
package styles
