// Package credential verifies the master authentication factor. The exact
// semantics of the master credential are deployment-specific, so verification
// hides behind the MasterVerifier strategy: a time-derived digest scheme and
// an argon2id hash scheme are provided, selected by configuration.
package credential

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"admin-auth-service/internal/hashing"
	"admin-auth-service/internal/model"
)

// MasterVerifier checks the submitted master credential for an access level.
// Implementations must be safe for concurrent use and fail closed.
type MasterVerifier interface {
	Verify(submitted string, level model.AccessLevel, at time.Time) (bool, error)
}

// DerivedKeyVerifier computes the expected credential for an hour bucket as
// SHA-256(master:level:salt:bucket) and accepts the current or previous
// bucket, absorbing submissions that straddle an hour boundary.
type DerivedKeyVerifier struct {
	masterKey string
	salt      string
}

func NewDerivedKeyVerifier(masterKey, salt string) *DerivedKeyVerifier {
	return &DerivedKeyVerifier{masterKey: masterKey, salt: salt}
}

// ExpectedCredential returns the hex digest valid for the hour containing at.
func (v *DerivedKeyVerifier) ExpectedCredential(level model.AccessLevel, at time.Time) string {
	bucket := at.UnixMilli() / time.Hour.Milliseconds()
	payload := fmt.Sprintf("%s:%s:%s:%d", v.masterKey, level, v.salt, bucket)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func (v *DerivedKeyVerifier) Verify(submitted string, level model.AccessLevel, at time.Time) (bool, error) {
	current := v.ExpectedCredential(level, at)
	previous := v.ExpectedCredential(level, at.Add(-time.Hour))

	// Evaluate both buckets unconditionally so timing does not reveal which
	// one matched.
	matchCurrent := subtle.ConstantTimeCompare([]byte(submitted), []byte(current))
	matchPrevious := subtle.ConstantTimeCompare([]byte(submitted), []byte(previous))
	return matchCurrent|matchPrevious == 1, nil
}

// Argon2Verifier accepts a credential matching a pre-configured argon2id
// hash. This is the externally-configured master key semantics: the operator
// provisions the hash out of band and every access level shares it.
type Argon2Verifier struct {
	hasher  *hashing.Hasher
	encoded string
}

func NewArgon2Verifier(hasher *hashing.Hasher, encoded string) *Argon2Verifier {
	return &Argon2Verifier{hasher: hasher, encoded: encoded}
}

func (v *Argon2Verifier) Verify(submitted string, _ model.AccessLevel, _ time.Time) (bool, error) {
	ok, err := v.hasher.Verify(submitted, v.encoded)
	if err != nil {
		return false, fmt.Errorf("argon2 verification failed: %w", err)
	}
	return ok, nil
}
