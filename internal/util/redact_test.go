package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactSecret(t *testing.T) {
	assert.Equal(t, "abcd1234********", RedactSecret("abcd1234efgh5678", 8))
	assert.Equal(t, "*****", RedactSecret("short", 8), "secrets shorter than keep are fully masked")
	assert.Equal(t, "******", RedactSecret("secret", 0))
	assert.Equal(t, "", RedactSecret("", 8))
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "plain", SanitizeInput("  plain  "))
	assert.Equal(t, "&lt;script&gt;", SanitizeInput("<script>"))
	assert.Equal(t, "a&amp;b", SanitizeInput("a&b"))
}
