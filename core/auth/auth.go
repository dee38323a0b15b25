package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"TuneBox/config"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize = 64
	keySize  = 64
)

// Hasher derives password hashes with PBKDF2-HMAC-SHA512.
type Hasher struct {
	iterations int
}

// NewHasher returns a Hasher; iterations <= 0 selects the production default.
func NewHasher(iterations int) *Hasher {
	if iterations <= 0 {
		iterations = config.DefaultPBKDF2Iterations
	}
	return &Hasher{iterations: iterations}
}

func (h *Hasher) Iterations() int {
	return h.iterations
}

// HashPassword generates a random salt and returns the hex encoded hash and salt.
func (h *Hasher) HashPassword(password string) (hash, salt string, err error) {
	saltBytes := make([]byte, saltSize)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), saltBytes, h.iterations, keySize, sha512.New)
	return hex.EncodeToString(key), hex.EncodeToString(saltBytes), nil
}

// CheckPasswordHash compares a password with a stored hash in constant time.
func (h *Hasher) CheckPasswordHash(password, hash, salt string) bool {
	saltBytes, err := hex.DecodeString(salt)
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(hash)
	if err != nil {
		return false
	}
	key := pbkdf2.Key([]byte(password), saltBytes, h.iterations, keySize, sha512.New)
	return subtle.ConstantTimeCompare(key, expected) == 1
}
