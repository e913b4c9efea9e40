package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dmitrijs2005/shlink/internal/common"
	"github.com/dmitrijs2005/shlink/internal/cryptox"
	"github.com/dmitrijs2005/shlink/internal/dbx"
	"github.com/dmitrijs2005/shlink/internal/logging"
	"github.com/dmitrijs2005/shlink/internal/server/auth"
	"github.com/dmitrijs2005/shlink/internal/server/config"
	"github.com/dmitrijs2005/shlink/internal/server/models"
	"github.com/dmitrijs2005/shlink/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shlink/internal/server/storage"
	"github.com/dmitrijs2005/shlink/internal/shlink"
)

// FileKind tells how a manifest entry carries its JWE.
type FileKind int

const (
	FileEmbedded FileKind = iota
	FileLocation
)

// FileEntry is one manifest entry: the JWE itself or a URL to fetch it from.
type FileEntry struct {
	Kind        FileKind
	ContentType string
	JWE         string
	Location    string
	LastUpdated time.Time
}

// Wire converts the entry to its JSON representation.
func (f FileEntry) Wire() shlink.ManifestFile {
	mf := shlink.ManifestFile{
		ContentType: f.ContentType,
		LastUpdated: f.LastUpdated.UTC().Format(time.RFC3339),
	}
	if f.Kind == FileEmbedded {
		mf.Embedded = f.JWE
	} else {
		mf.Location = f.Location
	}
	return mf
}

// ManifestResult is what a successful manifest request produces.
type ManifestResult struct {
	Status string
	Files  []FileEntry
}

// Wire converts the result to the JSON manifest.
func (r *ManifestResult) Wire() shlink.Manifest {
	m := shlink.Manifest{Status: r.Status, Files: make([]shlink.ManifestFile, 0, len(r.Files))}
	for _, f := range r.Files {
		m.Files = append(m.Files, f.Wire())
	}
	return m
}

// ManifestRequest carries the inputs of POST /api/shl/manifest/{id}.
type ManifestRequest struct {
	ManifestID        string
	Passcode          string
	EmbeddedLengthMax *int
	Access            AccessInfo
}

// ManifestService answers the recipient-facing protocol requests.
type ManifestService struct {
	db               *sql.DB
	repomanager      repomanager.RepositoryManager
	store            storage.ObjectStore
	audit            *AuditLog
	logger           logging.Logger
	inTx             txRunner
	now              func() time.Time
	baseURL          string
	fileSecret       []byte
	fileTokenTTL     time.Duration
	passcodeAttempts int
}

// NewManifestService wires the service. store may be nil when ciphertext is
// kept inline in the database.
func NewManifestService(db *sql.DB, m repomanager.RepositoryManager, store storage.ObjectStore, audit *AuditLog, cfg *config.Config, logger logging.Logger) *ManifestService {
	return &ManifestService{
		db:               db,
		repomanager:      m,
		store:            store,
		audit:            audit,
		logger:           logger.With("module", "manifest"),
		inTx:             sqlTxRunner(db),
		now:              time.Now,
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		fileSecret:       []byte(cfg.SecretKey),
		fileTokenTTL:     cfg.FileTokenTTL,
		passcodeAttempts: cfg.PasscodeAttempts,
	}
}

// errRevoked short-circuits a revoked link into a no-longer-valid manifest.
var errRevoked = errors.New("revoked")

// Manifest serves a manifest request. Revoked links produce a
// no-longer-valid manifest with no files rather than an error.
func (s *ManifestService) Manifest(ctx context.Context, req ManifestRequest) (*ManifestResult, error) {
	link, err := s.repomanager.Links(s.db).GetByManifestID(ctx, req.ManifestID)
	if err != nil {
		return nil, err
	}

	if err := s.admit(ctx, link, req.Passcode, models.ActionManifestRequest, req.Access); err != nil {
		if errors.Is(err, errRevoked) {
			return &ManifestResult{Status: shlink.StatusNoLongerValid, Files: []FileEntry{}}, nil
		}
		return nil, err
	}

	return s.serve(ctx, link, req.EmbeddedLengthMax, models.ActionManifestRequest, req.Access)
}

// Direct serves a GET on a manifest URL of a U-flagged link. Every file is
// embedded; callers typically return only the first one.
func (s *ManifestService) Direct(ctx context.Context, manifestID string, access AccessInfo) (*ManifestResult, error) {
	link, err := s.repomanager.Links(s.db).GetByManifestID(ctx, manifestID)
	if err != nil {
		return nil, err
	}

	if !link.DirectAccess {
		s.audit.Failure(ctx, link.ID, models.ActionDirectAccess, access, reasonNotDirect)
		return nil, fmt.Errorf("%w: link does not allow direct access", common.ErrBadRequest)
	}

	if err := s.admit(ctx, link, "", models.ActionDirectAccess, access); err != nil {
		if errors.Is(err, errRevoked) {
			return &ManifestResult{Status: shlink.StatusNoLongerValid, Files: []FileEntry{}}, nil
		}
		return nil, err
	}

	unlimited := math.MaxInt
	res, err := s.serve(ctx, link, &unlimited, models.ActionDirectAccess, access)
	if err != nil {
		return nil, err
	}
	if len(res.Files) == 0 {
		return nil, common.ErrorNotFound
	}
	return res, nil
}

// File redeems a location token and returns the JWE it points to.
func (s *ManifestService) File(ctx context.Context, token string, access AccessInfo) (*FileEntry, error) {
	claims, err := auth.ParseFileToken(token, s.fileSecret)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	link, err := s.repomanager.Links(s.db).GetByID(ctx, claims.LinkID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}

	switch link.State(s.now()) {
	case models.LinkActive, models.LinkConsumed:
	case models.LinkExpired:
		s.audit.Failure(ctx, link.ID, models.ActionFileDownload, access, reasonExpired)
		return nil, common.ErrExpired
	default:
		s.audit.Failure(ctx, link.ID, models.ActionFileDownload, access, reasonInactive)
		return nil, common.ErrInactive
	}

	ft, err := s.repomanager.FileTokens(s.db).Consume(ctx, claims.ID, s.now().UTC())
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			s.audit.Failure(ctx, link.ID, models.ActionFileDownload, access, reasonInvalidToken)
		}
		return nil, err
	}
	if ft.LinkID != claims.LinkID || ft.ContentID != claims.ContentID {
		s.audit.Failure(ctx, link.ID, models.ActionFileDownload, access, reasonInvalidToken)
		return nil, common.ErrInvalidToken
	}

	c, err := s.repomanager.Contents(s.db).Get(ctx, ft.ContentID)
	if err != nil {
		s.audit.Failure(ctx, link.ID, models.ActionFileDownload, access, reasonInternal)
		return nil, err
	}
	jwe, err := s.loadJWE(ctx, c)
	if err != nil {
		s.audit.Failure(ctx, link.ID, models.ActionFileDownload, access, reasonInternal)
		return nil, err
	}

	s.audit.Success(ctx, link.ID, models.ActionFileDownload, access)
	return &FileEntry{Kind: FileEmbedded, ContentType: c.ContentType, JWE: jwe, LastUpdated: c.CreatedAt}, nil
}

// admit applies expiry, deactivation and passcode checks in that order.
func (s *ManifestService) admit(ctx context.Context, link *models.Link, passcode string, action models.AccessAction, access AccessInfo) error {
	switch link.State(s.now()) {
	case models.LinkExpired:
		s.audit.Failure(ctx, link.ID, action, access, reasonExpired)
		return common.ErrExpired
	case models.LinkLocked:
		s.audit.Failure(ctx, link.ID, action, access, reasonLocked)
		return common.ErrLockedOut
	case models.LinkConsumed:
		s.audit.Failure(ctx, link.ID, action, access, reasonConsumed)
		return common.ErrInactive
	case models.LinkInactive:
		if link.Revoked() {
			s.audit.Failure(ctx, link.ID, action, access, reasonRevoked)
			return errRevoked
		}
		s.audit.Failure(ctx, link.ID, action, access, reasonInactive)
		return common.ErrInactive
	}

	if !link.PasscodeProtected() {
		return nil
	}

	repo := s.repomanager.Links(s.db)

	ok := false
	if passcode != "" {
		var err error
		ok, err = cryptox.CheckPasscode(*link.PasscodeHash, passcode)
		if err != nil {
			s.logger.Error(ctx, "passcode check failed", "link_id", link.ID, "error", err)
			return common.ErrorInternal
		}
	}

	if !ok {
		failures, active, err := repo.RecordPasscodeFailure(ctx, link.ID, s.passcodeAttempts)
		if err != nil {
			if errors.Is(err, common.ErrInactive) {
				s.audit.Failure(ctx, link.ID, models.ActionPasscodeFailure, access, reasonLocked)
				return common.ErrLockedOut
			}
			return err
		}
		s.audit.Failure(ctx, link.ID, models.ActionPasscodeFailure, access, reasonInvalidPasscode)
		if !active {
			s.logger.Warn(ctx, "link locked after repeated passcode failures", "link_id", link.ID, "failures", failures)
		}
		return &common.PasscodeError{Remaining: max(0, s.passcodeAttempts-failures)}
	}

	if err := repo.ResetFailures(ctx, link.ID); err != nil {
		if errors.Is(err, common.ErrInactive) {
			s.audit.Failure(ctx, link.ID, action, access, reasonInactive)
		}
		return err
	}
	return nil
}

// serve consumes single-use links and builds the file list atomically.
func (s *ManifestService) serve(ctx context.Context, link *models.Link, embeddedMax *int, action models.AccessAction, access AccessInfo) (*ManifestResult, error) {
	var files []FileEntry

	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if link.SingleUse {
			if err := s.repomanager.Links(tx).Consume(ctx, link.ID); err != nil {
				return err
			}
		}

		list, err := s.repomanager.Contents(tx).ListByLink(ctx, link.ID)
		if err != nil {
			return err
		}

		files = make([]FileEntry, 0, len(list))
		for _, c := range list {
			f, err := s.buildFile(ctx, tx, link, c, embeddedMax)
			if err != nil {
				return err
			}
			files = append(files, f)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrInactive) {
			s.audit.Failure(ctx, link.ID, action, access, reasonConsumed)
			return nil, err
		}
		s.audit.Failure(ctx, link.ID, action, access, reasonInternal)
		s.logger.Error(ctx, "building manifest failed", "link_id", link.ID, "error", err)
		return nil, err
	}

	s.audit.Success(ctx, link.ID, action, access)

	status := shlink.StatusActive
	if link.LongTerm {
		status = shlink.StatusCanChange
	}
	return &ManifestResult{Status: status, Files: files}, nil
}

func (s *ManifestService) buildFile(ctx context.Context, tx dbx.DBTX, link *models.Link, c *models.Content, embeddedMax *int) (FileEntry, error) {
	f := FileEntry{ContentType: c.ContentType, LastUpdated: c.CreatedAt}

	if embeddedMax != nil && c.Length <= *embeddedMax {
		jwe, err := s.loadJWE(ctx, c)
		if err != nil {
			return f, err
		}
		f.Kind = FileEmbedded
		f.JWE = jwe
		return f, nil
	}

	now := s.now()
	token, jti, err := auth.GenerateFileToken(link.ID, c.ID, s.fileSecret, s.fileTokenTTL, now)
	if err != nil {
		return f, fmt.Errorf("sign file token: %w", err)
	}
	err = s.repomanager.FileTokens(tx).Create(ctx, &models.FileToken{
		JTI:       jti,
		LinkID:    link.ID,
		ContentID: c.ID,
		ExpiresAt: now.Add(s.fileTokenTTL).UTC(),
		CreatedAt: now.UTC(),
	})
	if err != nil {
		return f, err
	}

	f.Kind = FileLocation
	f.Location = s.baseURL + "/api/shl/file/" + token
	return f, nil
}

func (s *ManifestService) loadJWE(ctx context.Context, c *models.Content) (string, error) {
	if c.Inline() {
		return *c.Ciphertext, nil
	}
	if s.store == nil || c.StorageKey == nil {
		return "", fmt.Errorf("content %s stored by reference but no object store configured", c.ID)
	}
	b, err := s.store.Get(ctx, *c.StorageKey)
	if err != nil {
		return "", fmt.Errorf("fetch payload %s: %w", *c.StorageKey, err)
	}
	return string(b), nil
}
