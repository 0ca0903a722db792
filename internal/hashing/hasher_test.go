package hashing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() Argon2Params {
	// Small parameters keep the test fast; correctness does not depend on cost.
	return Argon2Params{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestHashAndVerify(t *testing.T) {
	h := NewHasher(testParams())

	encoded, err := h.Hash("master-credential")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))

	ok, err := h.Verify("master-credential", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong-credential", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashUsesFreshSalt(t *testing.T) {
	h := NewHasher(testParams())

	first, err := h.Hash("same-credential")
	require.NoError(t, err)
	second, err := h.Hash("same-credential")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	// Both still verify.
	ok, err := h.Verify("same-credential", first)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = h.Verify("same-credential", second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyMalformedHash(t *testing.T) {
	h := NewHasher(testParams())

	tests := []string{
		"",
		"not-a-hash",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
	}

	for _, encoded := range tests {
		_, err := h.Verify("credential", encoded)
		assert.ErrorIs(t, err, ErrInvalidHash, "input %q", encoded)
	}
}

func TestVerifyIncompatibleVersion(t *testing.T) {
	h := NewHasher(testParams())

	_, err := h.Verify("credential", "$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$aGFzaA")
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}
