package validators

import "strings"

// SanitizeString trims surrounding whitespace and caps the value at
// maxLen runes. Truncation counts runes, not bytes, so a multibyte
// character is never cut in half.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 {
		return trimmed
	}
	runes := []rune(trimmed)
	if len(runes) <= maxLen {
		return trimmed
	}
	return string(runes[:maxLen])
}
