package cryptox

import (
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/shlink/internal/common"
)

// KeySize is the length of a link encryption key (AES-256).
const KeySize = 32

// GenerateKey returns a fresh random link key.
func GenerateKey() ([]byte, error) {
	key := common.GenerateRandByteArray(KeySize)
	if key == nil {
		return nil, fmt.Errorf("rng failure")
	}
	return key, nil
}

// EncodeKey renders a key the way it travels inside a link payload.
func EncodeKey(key []byte) string {
	return base64.RawURLEncoding.EncodeToString(key)
}

// DecodeKey parses a base64url key (padding tolerated) and checks its length.
func DecodeKey(s string) ([]byte, error) {
	key, err := base64.RawURLEncoding.DecodeString(trimPadding(s))
	if err != nil {
		return nil, fmt.Errorf("%w: key is not base64url", common.ErrFormat)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", common.ErrFormat, KeySize, len(key))
	}
	return key, nil
}

func trimPadding(s string) string {
	for len(s) > 0 && s[len(s)-1] == '=' {
		s = s[:len(s)-1]
	}
	return s
}
