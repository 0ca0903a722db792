package credential

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admin-auth-service/internal/hashing"
	"admin-auth-service/internal/model"
)

var baseTime = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

func TestExpectedCredentialStableWithinHour(t *testing.T) {
	v := NewDerivedKeyVerifier("master-key", "salt")

	hourStart := baseTime.Truncate(time.Hour)
	first := v.ExpectedCredential(model.ExamAdmin, hourStart)
	last := v.ExpectedCredential(model.ExamAdmin, hourStart.Add(59*time.Minute+59*time.Second))
	assert.Equal(t, first, last)

	next := v.ExpectedCredential(model.ExamAdmin, hourStart.Add(time.Hour))
	assert.NotEqual(t, first, next)
}

func TestExpectedCredentialVariesByLevel(t *testing.T) {
	v := NewDerivedKeyVerifier("master-key", "salt")

	exam := v.ExpectedCredential(model.ExamAdmin, baseTime)
	super := v.ExpectedCredential(model.SuperAdmin, baseTime)
	assert.NotEqual(t, exam, super)
	assert.Len(t, exam, 64, "hex-encoded SHA-256")
}

func TestDerivedKeyVerify(t *testing.T) {
	v := NewDerivedKeyVerifier("master-key", "salt")

	current := v.ExpectedCredential(model.SystemAdmin, baseTime)

	ok, err := v.Verify(current, model.SystemAdmin, baseTime)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Verify("not-the-credential", model.SystemAdmin, baseTime)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = v.Verify(current, model.ExamAdmin, baseTime)
	require.NoError(t, err)
	assert.False(t, ok, "credential is bound to its level")
}

func TestDerivedKeyBackwardTolerance(t *testing.T) {
	v := NewDerivedKeyVerifier("master-key", "salt")

	previous := v.ExpectedCredential(model.ExamAdmin, baseTime.Add(-time.Hour))

	// A credential computed in the previous hour still verifies.
	ok, err := v.Verify(previous, model.ExamAdmin, baseTime)
	require.NoError(t, err)
	assert.True(t, ok)

	// Two hours back does not.
	stale := v.ExpectedCredential(model.ExamAdmin, baseTime.Add(-2*time.Hour))
	ok, err = v.Verify(stale, model.ExamAdmin, baseTime)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2Verifier(t *testing.T) {
	hasher := hashing.NewHasher(hashing.DefaultParams())
	encoded, err := hasher.Hash("correct horse battery staple")
	require.NoError(t, err)

	v := NewArgon2Verifier(hasher, encoded)

	ok, err := v.Verify("correct horse battery staple", model.SuperAdmin, baseTime)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Verify("wrong password", model.SuperAdmin, baseTime)
	require.NoError(t, err)
	assert.False(t, ok)
}
