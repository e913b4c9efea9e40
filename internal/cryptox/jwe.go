// Package cryptox implements the content cipher used for SMART Health Links:
// JWE compact serialization with direct key agreement ("dir") and AES-256-GCM,
// optional raw DEFLATE compression, plus key and passcode helpers.
package cryptox

import (
	"bytes"
	"compress/flate"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/shlink/internal/common"
)

const (
	// CompressionThreshold is the plaintext size above which content is
	// deflated before encryption.
	CompressionThreshold = 1024

	// MaxInflatedSize bounds the output of decompression.
	MaxInflatedSize = 64 << 20

	algDirect  = "dir"
	encA256GCM = "A256GCM"
	zipDeflate = "DEF"

	ivSize  = 12
	tagSize = 16
)

// Header is the protected JOSE header of a content JWE.
type Header struct {
	Alg string `json:"alg"`
	Enc string `json:"enc"`
	Zip string `json:"zip,omitempty"`
}

var b64 = base64.RawURLEncoding

// EncryptJWE encrypts plaintext under key and returns the five-segment
// compact serialization. Plaintext larger than CompressionThreshold is
// compressed first and the header is marked zip:"DEF".
func EncryptJWE(plaintext, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	header := Header{Alg: algDirect, Enc: encA256GCM}
	payload := plaintext
	if len(plaintext) > CompressionThreshold {
		payload, err = deflate(plaintext)
		if err != nil {
			return "", err
		}
		header.Zip = zipDeflate
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	protected := b64.EncodeToString(headerJSON)

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	// Seal appends the tag to the ciphertext.
	sealed := gcm.Seal(nil, iv, payload, []byte(protected))
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return strings.Join([]string{
		protected,
		"",
		b64.EncodeToString(iv),
		b64.EncodeToString(ct),
		b64.EncodeToString(tag),
	}, "."), nil
}

// DecryptJWE reverses EncryptJWE. Structural problems yield common.ErrFormat;
// a tag mismatch yields common.ErrAuthentication and no plaintext.
func DecryptJWE(compact string, key []byte) ([]byte, error) {
	parts := strings.Split(strings.TrimSpace(compact), ".")
	if len(parts) != 5 {
		return nil, fmt.Errorf("%w: jwe has %d segments, want 5", common.ErrFormat, len(parts))
	}

	header, err := ParseHeader(parts[0])
	if err != nil {
		return nil, err
	}
	if parts[1] != "" {
		return nil, fmt.Errorf("%w: unexpected encrypted key for alg dir", common.ErrFormat)
	}

	iv, err := b64.DecodeString(parts[2])
	if err != nil || len(iv) != ivSize {
		return nil, fmt.Errorf("%w: bad iv", common.ErrFormat)
	}
	ct, err := b64.DecodeString(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext encoding", common.ErrFormat)
	}
	tag, err := b64.DecodeString(parts[4])
	if err != nil || len(tag) != tagSize {
		return nil, fmt.Errorf("%w: bad tag", common.ErrFormat)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ct)+len(tag))
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	// The header segment is authenticated exactly as received.
	plaintext, err := gcm.Open(nil, iv, sealed, []byte(parts[0]))
	if err != nil {
		return nil, common.ErrAuthentication
	}

	if header.Zip == zipDeflate {
		inflated, err := inflate(plaintext)
		common.WipeByteArray(plaintext)
		if err != nil {
			return nil, err
		}
		return inflated, nil
	}
	return plaintext, nil
}

// ParseHeader decodes and validates the protected header segment.
func ParseHeader(segment string) (*Header, error) {
	raw, err := b64.DecodeString(segment)
	if err != nil {
		return nil, fmt.Errorf("%w: header is not base64url", common.ErrFormat)
	}
	h := &Header{}
	if err := json.Unmarshal(raw, h); err != nil {
		return nil, fmt.Errorf("%w: header is not json", common.ErrFormat)
	}
	if h.Alg != algDirect || h.Enc != encA256GCM {
		return nil, fmt.Errorf("%w: unsupported alg/enc %q/%q", common.ErrFormat, h.Alg, h.Enc)
	}
	if h.Zip != "" && h.Zip != zipDeflate {
		return nil, fmt.Errorf("%w: unsupported zip %q", common.ErrFormat, h.Zip)
	}
	return h, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", common.ErrFormat, KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func deflate(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(p); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(p []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(p))
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, MaxInflatedSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: inflate: %v", common.ErrFormat, err)
	}
	if len(out) > MaxInflatedSize {
		return nil, fmt.Errorf("%w: inflated content exceeds %d bytes", common.ErrFormat, MaxInflatedSize)
	}
	return out, nil
}
