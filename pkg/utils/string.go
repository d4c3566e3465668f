package utils

import "unicode/utf8"

// Truncate shortens s to at most maxLen runes, appending "..." when anything
// was cut. Multi-byte text is never split mid-rune.
func Truncate(s string, maxLen int) string {
	if maxLen < 0 {
		maxLen = 0
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}

	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
