// Package shlink holds the SMART Health Link wire formats shared by the
// issuing server and the viewer: the link payload carried in a URI fragment
// and the JSON bodies of the manifest exchange.
package shlink

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/shlink/internal/common"
)

const (
	// Scheme prefixes the encoded payload inside the fragment.
	Scheme = "shlink:/"

	// Version is the only payload version this package emits.
	Version = 1

	// MaxLabelLength is the longest label a payload may carry.
	MaxLabelLength = 80
)

// Flag letters, in their canonical order.
const (
	FlagLongTerm = 'L'
	FlagPasscode = 'P'
	FlagDirect   = 'U'
)

const flagOrder = "LPU"

// Payload is the JSON object embedded in a link.
type Payload struct {
	URL   string `json:"url"`
	Key   string `json:"key"`
	Exp   int64  `json:"exp,omitempty"`
	Flag  string `json:"flag,omitempty"`
	Label string `json:"label,omitempty"`
	V     int    `json:"v"`
}

// BuildFlags returns the flag string for the given properties in canonical order.
func BuildFlags(longTerm, passcode, direct bool) string {
	var b strings.Builder
	if longTerm {
		b.WriteByte(FlagLongTerm)
	}
	if passcode {
		b.WriteByte(FlagPasscode)
	}
	if direct {
		b.WriteByte(FlagDirect)
	}
	return b.String()
}

// Has reports whether the payload carries flag f.
func (p *Payload) Has(f byte) bool {
	return strings.IndexByte(p.Flag, f) >= 0
}

// ExpiresAt returns the expiry as a time, or the zero time when unset.
func (p *Payload) ExpiresAt() time.Time {
	if p.Exp == 0 {
		return time.Time{}
	}
	return time.Unix(p.Exp, 0)
}

// Expired reports whether the payload's expiry lies before now.
func (p *Payload) Expired(now time.Time) bool {
	return p.Exp != 0 && now.Unix() > p.Exp
}

// Validate checks the invariants every payload must satisfy.
func (p *Payload) Validate() error {
	if p.URL == "" {
		return fmt.Errorf("%w: url is missing", common.ErrFormat)
	}
	if p.Key == "" {
		return fmt.Errorf("%w: key is missing", common.ErrFormat)
	}
	for i := 0; i < len(p.Flag); i++ {
		if strings.IndexByte(flagOrder, p.Flag[i]) < 0 {
			return fmt.Errorf("%w: unknown flag %q", common.ErrFormat, p.Flag[i])
		}
	}
	if len([]rune(p.Label)) > MaxLabelLength {
		return fmt.Errorf("%w: label longer than %d characters", common.ErrFormat, MaxLabelLength)
	}
	return nil
}

// Encode serializes p into "shlink:/<base64url>" form. A zero V is written
// as Version, so Decode(Encode(p)) yields p with V set.
func Encode(p Payload) (string, error) {
	if p.V == 0 {
		p.V = Version
	}
	if err := p.Validate(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return Scheme + base64.RawURLEncoding.EncodeToString(raw), nil
}

// Fragment is Encode with the leading '#', ready to append to a viewer URL.
func Fragment(p Payload) (string, error) {
	s, err := Encode(p)
	if err != nil {
		return "", err
	}
	return "#" + s, nil
}

// Decode parses a payload. It accepts a full viewer URL, a "#shlink:/..."
// fragment, a bare "shlink:/..." string or the base64url text alone. A
// missing "v" decodes as Version.
func Decode(s string) (*Payload, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, Scheme); i >= 0 {
		s = s[i+len(Scheme):]
	}
	s = strings.TrimLeft(s, "#")
	if s == "" {
		return nil, fmt.Errorf("%w: empty payload", common.ErrFormat)
	}

	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not base64url", common.ErrFormat)
	}

	p := &Payload{}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("%w: payload is not json", common.ErrFormat)
	}
	if p.V == 0 {
		p.V = Version
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
