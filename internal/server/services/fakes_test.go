package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/shlink/internal/common"
	"github.com/dmitrijs2005/shlink/internal/dbx"
	"github.com/dmitrijs2005/shlink/internal/logging"
	"github.com/dmitrijs2005/shlink/internal/server/config"
	"github.com/dmitrijs2005/shlink/internal/server/models"
	"github.com/dmitrijs2005/shlink/internal/server/repositories/accesslogs"
	"github.com/dmitrijs2005/shlink/internal/server/repositories/contents"
	"github.com/dmitrijs2005/shlink/internal/server/repositories/filetokens"
	"github.com/dmitrijs2005/shlink/internal/server/repositories/links"
	"github.com/dmitrijs2005/shlink/internal/server/storage"
	"github.com/stretchr/testify/require"
)

// memDB is an in-memory stand-in for the four tables. Conditional updates
// hold the lock for their whole duration, like a single SQL statement.
type memDB struct {
	mu       sync.Mutex
	links    map[string]*models.Link
	contents []*models.Content
	logs     []*models.AccessLog
	tokens   map[string]*models.FileToken

	appendErr error
}

func newMemDB() *memDB {
	return &memDB{links: map[string]*models.Link{}, tokens: map[string]*models.FileToken{}}
}

type fakeRM struct{ db *memDB }

func (f *fakeRM) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRM) Links(dbx.DBTX) links.Repository { return &memLinks{f.db} }
func (f *fakeRM) Contents(dbx.DBTX) contents.Repository { return &memContents{f.db} }
func (f *fakeRM) AccessLogs(dbx.DBTX) accesslogs.Repository { return &memLogs{f.db} }
func (f *fakeRM) FileTokens(dbx.DBTX) filetokens.Repository { return &memTokens{f.db} }

type memLinks struct{ db *memDB }

func (r *memLinks) Create(_ context.Context, l *models.Link) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *l
	r.db.links[l.ID] = &cp
	return nil
}

func (r *memLinks) GetByID(_ context.Context, id string) (*models.Link, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l, ok := r.db.links[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *memLinks) GetByManifestID(_ context.Context, manifestID string) (*models.Link, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, l := range r.db.links {
		if l.ManifestID == manifestID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memLinks) filtered(active *bool) []*models.Link {
	var out []*models.Link
	for _, l := range r.db.links {
		if active == nil || l.Active == *active {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memLinks) List(_ context.Context, active *bool, limit, offset int) ([]*models.Link, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	all := r.filtered(active)
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(len(all), offset+limit)], nil
}

func (r *memLinks) Count(_ context.Context, active *bool) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return len(r.filtered(active)), nil
}

func (r *memLinks) RecordPasscodeFailure(_ context.Context, id string, limit int) (int, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l, ok := r.db.links[id]
	if !ok || !l.Active {
		return 0, false, common.ErrInactive
	}
	l.FailedAttempts++
	if l.FailedAttempts >= limit {
		l.Active = false
		reason := models.ReasonLocked
		l.DeactivationReason = &reason
	}
	return l.FailedAttempts, l.Active, nil
}

func (r *memLinks) ResetFailures(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l, ok := r.db.links[id]
	if !ok || !l.Active {
		return common.ErrInactive
	}
	l.FailedAttempts = 0
	return nil
}

func (r *memLinks) deactivate(id, reason string, onMiss error) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l, ok := r.db.links[id]
	if !ok || !l.Active {
		return onMiss
	}
	l.Active = false
	l.DeactivationReason = &reason
	return nil
}

func (r *memLinks) Consume(_ context.Context, id string) error {
	return r.deactivate(id, models.ReasonConsumed, common.ErrInactive)
}

func (r *memLinks) Revoke(_ context.Context, id string) error {
	return r.deactivate(id, models.ReasonRevoked, common.ErrorNotFound)
}

type memContents struct{ db *memDB }

func (r *memContents) Create(_ context.Context, c *models.Content) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *c
	r.db.contents = append(r.db.contents, &cp)
	return nil
}

func (r *memContents) Get(_ context.Context, id string) (*models.Content, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.contents {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memContents) ListByLink(_ context.Context, linkID string) ([]*models.Content, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.Content
	for _, c := range r.db.contents {
		if c.LinkID == linkID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memLogs struct{ db *memDB }

func (r *memLogs) Append(_ context.Context, e *models.AccessLog) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.appendErr != nil {
		return r.db.appendErr
	}
	cp := *e
	r.db.logs = append(r.db.logs, &cp)
	return nil
}

func (r *memLogs) byLink(linkID string) []*models.AccessLog {
	var out []*models.AccessLog
	for i := len(r.db.logs) - 1; i >= 0; i-- {
		if r.db.logs[i].LinkID == linkID {
			out = append(out, r.db.logs[i])
		}
	}
	return out
}

func (r *memLogs) ListByLink(_ context.Context, linkID string, limit, offset int) ([]*models.AccessLog, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	all := r.byLink(linkID)
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(len(all), offset+limit)], nil
}

func (r *memLogs) CountByLink(_ context.Context, linkID string) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return len(r.byLink(linkID)), nil
}

func (r *memLogs) CountSuccessful(_ context.Context, linkID string) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for _, e := range r.byLink(linkID) {
		if e.Success {
			n++
		}
	}
	return n, nil
}

type memTokens struct{ db *memDB }

func (r *memTokens) Create(_ context.Context, t *models.FileToken) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *t
	r.db.tokens[t.JTI] = &cp
	return nil
}

func (r *memTokens) Consume(_ context.Context, jti string, now time.Time) (*models.FileToken, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tokens[jti]
	if !ok || t.ConsumedAt != nil || !t.ExpiresAt.After(now) {
		return nil, common.ErrInvalidToken
	}
	at := now
	t.ConsumedAt = &at
	cp := *t
	return &cp, nil
}

func (r *memTokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for k, t := range r.db.tokens {
		if t.ExpiresAt.Before(before) {
			delete(r.db.tokens, k)
			n++
		}
	}
	return n, nil
}

// memStore is an in-memory ObjectStore.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	gets    int
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (s *memStore) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	b, ok := s.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return b, nil
}

func directTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return fn(ctx, nil)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BaseURL = "https://shl.example.org"
	cfg.ViewerPath = "/view"
	cfg.PasscodeAttempts = 3
	return cfg
}

// harness bundles both services over the same in-memory database. store
// may be nil to keep ciphertext inline.
type harness struct {
	db       *memDB
	rm       *fakeRM
	links    *LinkService
	manifest *ManifestService
	audit    *AuditLog
	now      time.Time
}

func newHarness(t *testing.T, store *memStore) *harness {
	t.Helper()

	h := &harness{db: newMemDB(), now: time.Now().UTC().Truncate(time.Second)}
	h.rm = &fakeRM{db: h.db}
	cfg := testConfig()
	log := logging.Nop()
	clock := func() time.Time { return h.now }

	var objects storage.ObjectStore
	if store != nil {
		objects = store
	}

	h.audit = NewAuditLog(nil, h.rm, log)
	h.audit.now = clock

	qr := NewQRService(objects, cfg.QRCodeSize, log)

	h.links = NewLinkService(nil, h.rm, objects, qr, cfg, log)
	h.links.inTx = directTx
	h.links.now = clock

	h.manifest = NewManifestService(nil, h.rm, objects, h.audit, cfg, log)
	h.manifest.inTx = directTx
	h.manifest.now = clock

	return h
}

// storedLink returns the persisted record behind a created link.
func (h *harness) storedLink(t *testing.T, id string) *models.Link {
	t.Helper()
	l, err := h.rm.Links(nil).GetByID(context.Background(), id)
	require.NoError(t, err)
	return l
}

func (h *harness) logsFor(linkID string) []*models.AccessLog {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()
	var out []*models.AccessLog
	for _, e := range h.db.logs {
		if e.LinkID == linkID {
			out = append(out, e)
		}
	}
	return out
}
