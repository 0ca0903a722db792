package hashing

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidHash         = errors.New("invalid hash format")
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams are sized for interactive authentication checks.
func DefaultParams() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

type Hasher struct {
	params Argon2Params
}

func NewHasher(params Argon2Params) *Hasher {
	return &Hasher{params: params}
}

// Hash derives an argon2id digest of the credential with a fresh random salt
// and returns it in the standard encoded form, suitable for configuration.
func (h *Hasher) Hash(credential string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	digest := argon2.IDKey(
		[]byte(credential),
		salt,
		h.params.Iterations,
		h.params.Memory,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)
	return encoded, nil
}

// Verify recomputes the digest with the parameters embedded in encoded and
// compares in constant time.
func (h *Hasher) Verify(credential, encoded string) (bool, error) {
	params, salt, digest, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(credential),
		salt,
		params.Iterations,
		params.Memory,
		params.Parallelism,
		uint32(len(digest)),
	)

	return subtle.ConstantTimeCompare(computed, digest) == 1, nil
}

func decodeHash(encoded string) (Argon2Params, []byte, []byte, error) {
	var params Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return params, nil, nil, ErrIncompatibleVersion
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d",
		&params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return params, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, ErrInvalidHash
	}

	digest, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, ErrInvalidHash
	}

	return params, salt, digest, nil
}
