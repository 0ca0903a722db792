// Package totp implements the time-step code factor: 30-second windows,
// SHA-1 HMAC with dynamic truncation, 6-digit codes (RFC 6238). Verification
// tolerates a configurable number of adjacent windows to absorb clock drift.
package totp

import (
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"admin-auth-service/internal/model"
)

const (
	// Period is the code step window in seconds.
	Period = 30
	// secretLength is the number of derived key bytes fed to the HMAC.
	secretLength = 20
)

var opts = totp.ValidateOpts{
	Period:    Period,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// DeriveSecret deterministically derives the per-access-level shared secret
// from the master key. The same derivation feeds both enrollment (setup URI)
// and verification, so no per-admin secret is ever stored.
func DeriveSecret(masterKey string, level model.AccessLevel) string {
	sum := sha256.Sum256([]byte(masterKey + string(level)))
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:secretLength])
}

// GenerateCode returns the 6-digit code for the window containing at.
// Pure function of (secret, at).
func GenerateCode(secret string, at time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, at, opts)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return code, nil
}

// VerifyCode checks a submitted code against the window containing at plus
// skew adjacent windows on each side. Comparison is constant time.
func VerifyCode(secret, code string, at time.Time, skew uint) (bool, error) {
	o := opts
	o.Skew = skew
	ok, err := totp.ValidateCustom(code, secret, at, o)
	if err != nil {
		return false, fmt.Errorf("failed to validate code: %w", err)
	}
	return ok, nil
}

// SetupData builds the enrollment payload for standard authenticator apps.
func SetupData(issuer string, level model.AccessLevel, secret string) (*model.TOTPSetupData, error) {
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid secret: %w", err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: string(level),
		Period:      Period,
		Secret:      raw,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build setup key: %w", err)
	}

	return &model.TOTPSetupData{
		Secret:         key.Secret(),
		SetupURI:       key.URL(),
		ManualEntryKey: groupKey(key.Secret(), 4),
	}, nil
}

// groupKey splits the secret into fixed-size blocks for manual typing.
func groupKey(secret string, size int) string {
	var groups []string
	for len(secret) > size {
		groups = append(groups, secret[:size])
		secret = secret[size:]
	}
	if secret != "" {
		groups = append(groups, secret)
	}
	return strings.Join(groups, " ")
}
