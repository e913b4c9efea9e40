package client

import (
	"context"

	"github.com/dmitrijs2005/shlink/internal/shlink"
)

// DirectResponse is what a direct-access GET produced: either a bare JWE or
// a JSON manifest, never both.
type DirectResponse struct {
	JWE      string
	Manifest *shlink.Manifest
}

type Client interface {
	FetchManifest(ctx context.Context, manifestURL string, req shlink.ManifestRequest) (*shlink.Manifest, error)
	FetchDirect(ctx context.Context, manifestURL, recipient string) (*DirectResponse, error)
	FetchFile(ctx context.Context, location string) (string, error)
}
