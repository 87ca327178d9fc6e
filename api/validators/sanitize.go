package validators

import "strings"

// SanitizeString trims surrounding whitespace and caps the length. Used on
// free-text inputs like upload filenames before they become part of a
// storage object key. A maxLen of zero or less means no cap.
func SanitizeString(input string, maxLen int) string {
	s := strings.TrimSpace(input)
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
