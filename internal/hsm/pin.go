package hsm

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2Params tunes the PIN key derivation. Memory is in KiB.
type Argon2Params struct {
	Time       uint32 `mapstructure:"time" validate:"gte=1"`
	Memory     uint32 `mapstructure:"memory" validate:"gte=8"`
	Threads    uint8  `mapstructure:"threads" validate:"gte=1"`
	KeyLength  uint32 `mapstructure:"key_length" validate:"gte=16"`
	SaltLength int    `mapstructure:"salt_length" validate:"gte=8"`
}

// DefaultArgon2Params keeps directory import fast for large registration files.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{Time: 1, Memory: 64, Threads: 1, KeyLength: 32, SaltLength: 16}
}

// PinVault stores account PINs as salted Argon2id digests.
type PinVault struct {
	params Argon2Params
}

func NewPinVault(params Argon2Params) *PinVault {
	return &PinVault{params: params}
}

// HashPIN hashes a PIN using Argon2
func (v *PinVault) HashPIN(pin string, salt []byte) (string, error) {
	if len(salt) == 0 {
		salt = make([]byte, v.params.SaltLength)
		if _, err := rand.Read(salt); err != nil {
			return "", fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	hash := argon2.IDKey([]byte(pin), salt, v.params.Time, v.params.Memory, v.params.Threads, v.params.KeyLength)

	// Combine salt + hash
	result := make([]byte, len(salt)+len(hash))
	copy(result, salt)
	copy(result[len(salt):], hash)

	return base64.StdEncoding.EncodeToString(result), nil
}

// VerifyPIN verifies a PIN against its hash
func (v *PinVault) VerifyPIN(pin string, hashedPIN string) (bool, error) {
	decoded, err := base64.StdEncoding.DecodeString(hashedPIN)
	if err != nil {
		return false, fmt.Errorf("invalid PIN hash format: %w", err)
	}

	saltLen := len(decoded) - int(v.params.KeyLength)
	if saltLen <= 0 {
		return false, errors.New("PIN hash too short")
	}

	salt := decoded[:saltLen]
	storedHash := decoded[saltLen:]

	inputHash := argon2.IDKey([]byte(pin), salt, v.params.Time, v.params.Memory, v.params.Threads, v.params.KeyLength)

	return subtle.ConstantTimeCompare(inputHash, storedHash) == 1, nil
}
