package common

import (
	"crypto/rand"
	"encoding/base64"
)

// MakeRandBase64URL returns size random bytes encoded as unpadded base64url,
// the encoding used for manifest identifiers and link keys.
func MakeRandBase64URL(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	defer WipeByteArray(b)
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateRandByteArray returns a fresh slice of n random bytes, or nil if
// the system RNG fails.
func GenerateRandByteArray(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil
	}
	return b
}

// WipeByteArray zeroes b in place. A nil slice is ignored.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
