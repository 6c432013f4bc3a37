// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "strconv"

// Int64ToString converts an int64 to string.
func Int64ToString(i int64) string {
	return strconv.FormatInt(i, 10)
}

// FormatMillis renders a millisecond duration as "850ms" or "2.3s".
func FormatMillis(ms int64) string {
	if ms < 1000 {
		return Int64ToString(ms) + "ms"
	}
	return strconv.FormatFloat(float64(ms)/1000.0, 'f', 1, 64) + "s"
}
