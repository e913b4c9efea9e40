// Package netx holds small net/http helpers shared by the server and the
// viewer.
package netx

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/shlink/internal/common"
)

// ErrBodyTooLarge is returned by ReadLimited when the body exceeds the limit.
var ErrBodyTooLarge = errors.New("body too large")

// ClientIP returns the caller address: the first X-Forwarded-For hop when
// present, otherwise RemoteAddr without its port.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get(common.HeaderForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ReadLimited reads at most limit bytes from r.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)
	}
	return b, nil
}

// AcceptsOnly reports whether the Accept header names mediaType and no
// alternative that would also satisfy the caller.
func AcceptsOnly(r *http.Request, mediaType string) bool {
	accept := r.Header.Get("Accept")
	if accept == "" {
		return false
	}
	found := false
	for _, part := range strings.Split(accept, ",") {
		mt, _, _ := strings.Cut(part, ";")
		switch mt = strings.ToLower(strings.TrimSpace(mt)); mt {
		case mediaType:
			found = true
		case "":
		default:
			return false
		}
	}
	return found
}
