package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/shlink/internal/common"
	"github.com/dmitrijs2005/shlink/internal/netx"
	"github.com/dmitrijs2005/shlink/internal/shlink"
	"github.com/sethvargo/go-retry"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 64 << 20

// Options configure HTTPClient.
type Options struct {
	Timeout       time.Duration
	RetryAttempts int
	RetryBase     time.Duration
	UserAgent     string
}

type HTTPClient struct {
	http *http.Client
	opts Options
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient returns a client using hc, or a fresh http.Client when hc
// is nil.
func NewHTTPClient(hc *http.Client, opts Options) *HTTPClient {
	if hc == nil {
		hc = &http.Client{}
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 200 * time.Millisecond
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "shl-viewer"
	}
	return &HTTPClient{http: hc, opts: opts}
}

// FetchManifest POSTs req to manifestURL. It is never retried.
func (c *HTTPClient) FetchManifest(ctx context.Context, manifestURL string, req shlink.ManifestRequest) (*shlink.Manifest, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPost, manifestURL, body, map[string]string{
		"Content-Type": common.ContentTypeJSON,
		"Accept":       common.ContentTypeJSON,
	})
	if err != nil {
		return nil, err
	}

	var m shlink.Manifest
	if err := json.Unmarshal(resp.body, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest is not json", common.ErrFormat)
	}
	return &m, nil
}

// FetchDirect GETs a direct-access manifest URL. The server may answer with
// the JWE itself or with a JSON manifest.
func (c *HTTPClient) FetchDirect(ctx context.Context, manifestURL, recipient string) (*DirectResponse, error) {
	u, err := url.Parse(manifestURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad manifest url", common.ErrFormat)
	}
	q := u.Query()
	q.Set("recipient", recipient)
	u.RawQuery = q.Encode()

	resp, err := c.getWithRetry(ctx, u.String(), common.ContentTypeJOSE+", "+common.ContentTypeJSON)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(string(resp.body))
	if strings.HasPrefix(resp.contentType, common.ContentTypeJOSE) || looksLikeCompactJWE(text) {
		return &DirectResponse{JWE: text}, nil
	}

	var m shlink.Manifest
	if err := json.Unmarshal(resp.body, &m); err != nil {
		return nil, fmt.Errorf("%w: direct response is neither jwe nor json", common.ErrFormat)
	}
	return &DirectResponse{Manifest: &m}, nil
}

// FetchFile GETs a file location and returns the JWE it serves.
func (c *HTTPClient) FetchFile(ctx context.Context, location string) (string, error) {
	resp, err := c.getWithRetry(ctx, location, common.ContentTypeJOSE)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(resp.body)), nil
}

func looksLikeCompactJWE(s string) bool {
	return s != "" && !strings.ContainsAny(s, "{} \n") && strings.Count(s, ".") == 4
}

type response struct {
	contentType string
	body        []byte
}

func (c *HTTPClient) getWithRetry(ctx context.Context, target, accept string) (*response, error) {
	backoff := retry.WithMaxRetries(uint64(max(0, c.opts.RetryAttempts)), retry.NewExponential(c.opts.RetryBase))

	var out *response
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := c.do(ctx, http.MethodGet, target, nil, map[string]string{"Accept": accept})
		if err != nil {
			if errors.Is(err, common.ErrNetwork) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// do performs one request under the configured timeout. Transport failures
// and deadlines become common.ErrNetwork; non-200 answers go through
// statusError.
func (c *HTTPClient) do(ctx context.Context, method, target string, body []byte, header map[string]string) (*response, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrFormat, err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := netx.ReadLimited(resp.Body, maxResponseSize)
	if err != nil {
		if errors.Is(err, netx.ErrBodyTooLarge) {
			return nil, fmt.Errorf("%w: %v", common.ErrFormat, err)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, data)
	}
	return &response{contentType: resp.Header.Get("Content-Type"), body: data}, nil
}
