package validators

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeString trims surrounding whitespace, drops control characters and caps
// the result at maxLen runes. A maxLen of zero disables the cap.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(input))
	cleaned = strings.TrimSpace(cleaned)

	if maxLen > 0 && utf8.RuneCountInString(cleaned) > maxLen {
		return string([]rune(cleaned)[:maxLen])
	}
	return cleaned
}

// NormalizeEmail sanitizes and lowercases an email address.
func NormalizeEmail(input string) string {
	return strings.ToLower(SanitizeString(input, 255))
}
