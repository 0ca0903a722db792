package util

import (
	"html"
	"strings"
)

// RedactSecret keeps the first keep characters of a secret and masks the rest,
// so audit records stay forensically useful without leaking the full value.
func RedactSecret(secret string, keep int) string {
	if keep <= 0 || len(secret) <= keep {
		return strings.Repeat("*", len(secret))
	}
	return secret[:keep] + strings.Repeat("*", len(secret)-keep)
}

// SanitizeInput escapes HTML/script-like characters before a caller-supplied
// value (user agent, origin address) is attached to an audit record.
func SanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return html.EscapeString(s)
}
