package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/shlink/internal/client/client"
	"github.com/dmitrijs2005/shlink/internal/common"
	"github.com/dmitrijs2005/shlink/internal/cryptox"
	"github.com/dmitrijs2005/shlink/internal/shlink"
)

var (
	// ErrNotResolvable is returned by Resolve when the current snapshot
	// allows no further attempt.
	ErrNotResolvable = errors.New("link cannot be resolved in its current state")

	// ErrPasscodeMissing is returned, without contacting the server, when a
	// passcode-protected link is resolved with an empty passcode.
	ErrPasscodeMissing = errors.New("passcode required")
)

// Resolver drives one link through the state machine. Methods are safe for
// concurrent use but only one Resolve runs at a time.
type Resolver struct {
	client      client.Client
	recipient   string
	embeddedMax int
	now         func() time.Time

	mu   sync.Mutex
	snap Snapshot
	key  []byte

	inFlight atomic.Bool
}

func NewResolver(c client.Client, recipient string, embeddedMax int) *Resolver {
	return &Resolver{
		client:      c,
		recipient:   recipient,
		embeddedMax: embeddedMax,
		now:         time.Now,
	}
}

// Snapshot returns the current state.
func (r *Resolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

func (r *Resolver) apply(e Event) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap = Transition(r.snap, e)
	return r.snap
}

// Open parses link and moves to PARSE_ERROR, EXPIRED, PASSCODE_REQUIRED or
// LOADING. It never touches the network.
func (r *Resolver) Open(link string) (Snapshot, error) {
	if r.inFlight.Load() {
		return r.Snapshot(), common.ErrResolutionInFlight
	}

	p, err := shlink.Decode(link)
	if err != nil {
		return r.apply(ParseFailed{Err: err}), nil
	}
	key, err := cryptox.DecodeKey(p.Key)
	if err != nil {
		return r.apply(ParseFailed{Err: err}), nil
	}

	r.mu.Lock()
	r.key = key
	r.mu.Unlock()

	return r.apply(Opened{Payload: p, Now: r.now()}), nil
}

// Resolve runs one attempt from LOADING to SUCCESS, ERROR or back to
// PASSCODE_REQUIRED. The returned error is the snapshot's error, or
// ErrResolutionInFlight when another attempt is still running.
func (r *Resolver) Resolve(ctx context.Context, passcode string) (Snapshot, error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		return r.Snapshot(), common.ErrResolutionInFlight
	}
	defer r.inFlight.Store(false)

	cur := r.Snapshot()
	if cur.Payload == nil || !cur.Retryable() {
		return cur, ErrNotResolvable
	}
	p := cur.Payload
	// The server may demand a passcode even when the link carries no P flag.
	needsPasscode := p.Has(shlink.FlagPasscode) || cur.RemainingAttempts != nil
	if needsPasscode && passcode == "" {
		return cur, ErrPasscodeMissing
	}

	r.apply(PasscodeSubmitted{})

	m, err := r.fetchManifest(ctx, p, passcode, needsPasscode)
	if err != nil {
		var pe *common.PasscodeError
		if errors.As(err, &pe) {
			snap := r.apply(PasscodeRejected{Remaining: pe.Remaining})
			return snap, snap.Err
		}
		return r.fail(err)
	}

	snap := r.apply(ManifestReceived{Status: m.Status})
	if snap.State != StateDecrypting {
		return snap, snap.Err
	}

	files, err := r.decryptAll(ctx, m.Files)
	if err != nil {
		return r.fail(err)
	}
	return r.apply(FilesDecrypted{Files: files}), nil
}

func (r *Resolver) fail(err error) (Snapshot, error) {
	snap := r.apply(Failed{Err: err})
	return snap, snap.Err
}

// fetchManifest uses a direct GET for U links that need no passcode and a
// manifest POST otherwise. A bare JWE answer becomes a one-file manifest.
func (r *Resolver) fetchManifest(ctx context.Context, p *shlink.Payload, passcode string, withPasscode bool) (*shlink.Manifest, error) {
	if p.Has(shlink.FlagDirect) && !withPasscode {
		dr, err := r.client.FetchDirect(ctx, p.URL, r.recipient)
		if err != nil {
			return nil, err
		}
		if dr.Manifest != nil {
			return dr.Manifest, nil
		}
		return &shlink.Manifest{
			Status: shlink.StatusActive,
			Files:  []shlink.ManifestFile{{Embedded: dr.JWE}},
		}, nil
	}

	embeddedMax := r.embeddedMax
	req := shlink.ManifestRequest{
		Recipient:         r.recipient,
		EmbeddedLengthMax: &embeddedMax,
	}
	if withPasscode {
		req.Passcode = passcode
	}
	return r.client.FetchManifest(ctx, p.URL, req)
}

func (r *Resolver) decryptAll(ctx context.Context, files []shlink.ManifestFile) ([]DecryptedFile, error) {
	r.mu.Lock()
	key := r.key
	r.mu.Unlock()

	out := make([]DecryptedFile, 0, len(files))
	for i, f := range files {
		jwe := f.Embedded
		if jwe == "" {
			if f.Location == "" {
				return nil, fmt.Errorf("%w: file %d has neither embedded nor location", common.ErrFormat, i)
			}
			var err error
			jwe, err = r.client.FetchFile(ctx, f.Location)
			if err != nil {
				return nil, fmt.Errorf("file %d: %w", i, err)
			}
		}

		data, err := cryptox.DecryptJWE(jwe, key)
		if err != nil {
			return nil, fmt.Errorf("file %d: %w", i, err)
		}
		out = append(out, DecryptedFile{
			ContentType: f.ContentType,
			LastUpdated: f.LastUpdated,
			Data:        data,
		})
	}
	return out, nil
}
