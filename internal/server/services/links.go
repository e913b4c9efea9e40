package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/shlink/internal/common"
	"github.com/dmitrijs2005/shlink/internal/cryptox"
	"github.com/dmitrijs2005/shlink/internal/dbx"
	"github.com/dmitrijs2005/shlink/internal/logging"
	"github.com/dmitrijs2005/shlink/internal/server/config"
	"github.com/dmitrijs2005/shlink/internal/server/models"
	"github.com/dmitrijs2005/shlink/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shlink/internal/server/storage"
	"github.com/dmitrijs2005/shlink/internal/shlink"
)

const (
	manifestIDBytes      = 32
	maxManifestURLLength = 128

	minPasscodeLength = 4
	// bcrypt ignores everything past 72 bytes.
	maxPasscodeLength = 72

	defaultLinkPageSize   = 20
	defaultAccessPageSize = 50
	maxPageSize           = 100
)

// ContentInput is one file handed over by the issuer.
type ContentInput struct {
	Data        []byte
	ContentType string
	FileName    string
}

// CreateLinkInput describes a link to issue. A zero ExpiresIn means the
// link never expires.
type CreateLinkInput struct {
	Content      ContentInput
	Label        string
	Passcode     string
	ExpiresIn    time.Duration
	SingleUse    bool
	LongTerm     bool
	DirectAccess bool
}

// CreatedLink is returned once, at issuance.
type CreatedLink struct {
	ID        string     `json:"id"`
	ShlinkURL string     `json:"shlinkUrl"`
	QRCode    string     `json:"qrCode"`
	Label     string     `json:"label,omitempty"`
	Flags     string     `json:"flags"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	SingleUse bool       `json:"singleUse"`
}

// LinkSummary is a row of the link listing.
type LinkSummary struct {
	ID             string           `json:"id"`
	Label          string           `json:"label,omitempty"`
	Flags          string           `json:"flags"`
	State          models.LinkState `json:"state"`
	Active         bool             `json:"active"`
	SingleUse      bool             `json:"singleUse"`
	FailedAttempts int              `json:"failedAttempts"`
	ExpiresAt      *time.Time       `json:"expiresAt,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// ContentSummary describes a stored file without its ciphertext.
type ContentSummary struct {
	ID          string    `json:"id"`
	ContentType string    `json:"contentType"`
	FileName    string    `json:"fileName,omitempty"`
	Length      int       `json:"length"`
	CreatedAt   time.Time `json:"createdAt"`
}

// LinkDetail is the issuer's view of one link.
type LinkDetail struct {
	LinkSummary
	ShlinkURL          string           `json:"shlinkUrl"`
	DeactivationReason string           `json:"deactivationReason,omitempty"`
	Contents           []ContentSummary `json:"contents"`
	TotalAccesses      int              `json:"totalAccesses"`
}

// AccessLogEntry is one audited access as shown to the issuer.
type AccessLogEntry struct {
	ID            string              `json:"id"`
	Action        models.AccessAction `json:"action"`
	Recipient     string              `json:"recipient"`
	IPAddress     string              `json:"ipAddress,omitempty"`
	UserAgent     string              `json:"userAgent,omitempty"`
	Success       bool                `json:"success"`
	FailureReason string              `json:"failureReason,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// LinkService implements the issuer-facing operations.
type LinkService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.ObjectStore
	qr          *QRService
	logger      logging.Logger
	inTx        txRunner
	now         func() time.Time
	baseURL     string
	viewerPath  string
}

// NewLinkService wires the service. store may be nil when ciphertext is kept
// inline in the database.
func NewLinkService(db *sql.DB, m repomanager.RepositoryManager, store storage.ObjectStore, qr *QRService, cfg *config.Config, logger logging.Logger) *LinkService {
	return &LinkService{
		db:          db,
		repomanager: m,
		store:       store,
		qr:          qr,
		logger:      logger.With("module", "links"),
		inTx:        sqlTxRunner(db),
		now:         time.Now,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		viewerPath:  cfg.ViewerPath,
	}
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrBadRequest, fmt.Sprintf(format, args...))
}

func validateCreate(in CreateLinkInput) error {
	if len(in.Content.Data) == 0 {
		return badRequest("content is empty")
	}
	if utf8.RuneCountInString(in.Label) > shlink.MaxLabelLength {
		return badRequest("label longer than %d characters", shlink.MaxLabelLength)
	}
	if in.Passcode != "" && (len(in.Passcode) < minPasscodeLength || len(in.Passcode) > maxPasscodeLength) {
		return badRequest("passcode must be %d to %d characters", minPasscodeLength, maxPasscodeLength)
	}
	if in.ExpiresIn < 0 {
		return badRequest("expiry must be in the future")
	}
	if in.DirectAccess && in.LongTerm {
		return badRequest("direct access cannot be combined with a long-term link")
	}
	if in.DirectAccess && in.Passcode != "" {
		return badRequest("direct access cannot be combined with a passcode")
	}
	return nil
}

// Create issues a new link holding one file.
func (s *LinkService) Create(ctx context.Context, in CreateLinkInput) (*CreatedLink, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	key, err := cryptox.GenerateKey()
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	manifestID, err := common.MakeRandBase64URL(manifestIDBytes)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	link := &models.Link{
		ID:            newID(),
		ManifestID:    manifestID,
		EncryptionKey: cryptox.EncodeKey(key),
		Label:         in.Label,
		SingleUse:     in.SingleUse,
		LongTerm:      in.LongTerm,
		DirectAccess:  in.DirectAccess,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.Passcode != "" {
		hash, err := cryptox.HashPasscode(in.Passcode)
		if err != nil {
			return nil, err
		}
		link.PasscodeHash = &hash
	}
	if in.ExpiresIn > 0 {
		exp := now.Add(in.ExpiresIn).Truncate(time.Second)
		link.ExpiresAt = &exp
	}

	err = s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Links(tx).Create(ctx, link); err != nil {
			return err
		}
		_, err := s.addContent(ctx, tx, link, in.Content)
		return err
	})
	if err != nil {
		return nil, err
	}

	if u := s.manifestURL(link); len(u) > maxManifestURLLength {
		s.logger.Warn(ctx, "manifest url exceeds 128 characters", "link_id", link.ID, "length", len(u))
	}

	shlinkURL, err := s.shlinkURL(link)
	if err != nil {
		return nil, err
	}
	qr, err := s.qr.DataURI(ctx, link.ID, shlinkURL)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "link issued", "link_id", link.ID, "flags", flagsOf(link))

	return &CreatedLink{
		ID:        link.ID,
		ShlinkURL: shlinkURL,
		QRCode:    qr,
		Label:     link.Label,
		Flags:     flagsOf(link),
		ExpiresAt: link.ExpiresAt,
		SingleUse: link.SingleUse,
	}, nil
}

// AddContent appends a file to an active long-term link.
func (s *LinkService) AddContent(ctx context.Context, linkID string, in ContentInput) (*ContentSummary, error) {
	if len(in.Data) == 0 {
		return nil, badRequest("content is empty")
	}

	link, err := s.repomanager.Links(s.db).GetByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if !link.LongTerm {
		return nil, badRequest("content can only be added to long-term links")
	}
	switch link.State(s.now()) {
	case models.LinkActive:
	case models.LinkExpired:
		return nil, common.ErrExpired
	default:
		return nil, common.ErrInactive
	}

	c, err := s.addContent(ctx, s.db, link, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "content added", "link_id", link.ID, "content_id", c.ID)

	summary := summarizeContent(c)
	return &summary, nil
}

// List returns a page of links, newest first. active filters when non-nil.
func (s *LinkService) List(ctx context.Context, active *bool, page, size int) (*Page[LinkSummary], error) {
	page, size = clampPage(page, size, defaultLinkPageSize, maxPageSize)
	repo := s.repomanager.Links(s.db)

	total, err := repo.Count(ctx, active)
	if err != nil {
		return nil, err
	}
	list, err := repo.List(ctx, active, size, page*size)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := &Page[LinkSummary]{Content: make([]LinkSummary, 0, len(list)), TotalElements: total, Page: page, Size: size}
	for _, l := range list {
		out.Content = append(out.Content, summarizeLink(l, now))
	}
	return out, nil
}

// Get returns the detail view of one link.
func (s *LinkService) Get(ctx context.Context, id string) (*LinkDetail, error) {
	link, err := s.repomanager.Links(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	list, err := s.repomanager.Contents(s.db).ListByLink(ctx, id)
	if err != nil {
		return nil, err
	}
	accesses, err := s.repomanager.AccessLogs(s.db).CountSuccessful(ctx, id)
	if err != nil {
		return nil, err
	}
	shlinkURL, err := s.shlinkURL(link)
	if err != nil {
		return nil, err
	}

	d := &LinkDetail{
		LinkSummary:   summarizeLink(link, s.now()),
		ShlinkURL:     shlinkURL,
		Contents:      make([]ContentSummary, 0, len(list)),
		TotalAccesses: accesses,
	}
	if link.DeactivationReason != nil {
		d.DeactivationReason = *link.DeactivationReason
	}
	for _, c := range list {
		d.Contents = append(d.Contents, summarizeContent(c))
	}
	return d, nil
}

// Revoke deactivates a link. Recipients get a no-longer-valid manifest
// from then on.
func (s *LinkService) Revoke(ctx context.Context, id string) error {
	if err := s.repomanager.Links(s.db).Revoke(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "link revoked", "link_id", id)
	return nil
}

// AccessLog returns a page of the link's audit trail, newest first.
func (s *LinkService) AccessLog(ctx context.Context, id string, page, size int) (*Page[AccessLogEntry], error) {
	if _, err := s.repomanager.Links(s.db).GetByID(ctx, id); err != nil {
		return nil, err
	}

	page, size = clampPage(page, size, defaultAccessPageSize, maxPageSize)
	repo := s.repomanager.AccessLogs(s.db)

	total, err := repo.CountByLink(ctx, id)
	if err != nil {
		return nil, err
	}
	list, err := repo.ListByLink(ctx, id, size, page*size)
	if err != nil {
		return nil, err
	}

	out := &Page[AccessLogEntry]{Content: make([]AccessLogEntry, 0, len(list)), TotalElements: total, Page: page, Size: size}
	for _, e := range list {
		entry := AccessLogEntry{
			ID:        e.ID,
			Action:    e.Action,
			Recipient: e.Recipient,
			IPAddress: e.IPAddress,
			UserAgent: e.UserAgent,
			Success:   e.Success,
			CreatedAt: e.CreatedAt,
		}
		if e.FailureReason != nil {
			entry.FailureReason = *e.FailureReason
		}
		out.Content = append(out.Content, entry)
	}
	return out, nil
}

// QRCode renders the link's QR image as PNG.
func (s *LinkService) QRCode(ctx context.Context, id string) ([]byte, error) {
	link, err := s.repomanager.Links(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	shlinkURL, err := s.shlinkURL(link)
	if err != nil {
		return nil, err
	}
	return s.qr.PNG(ctx, link.ID, shlinkURL)
}

// addContent encrypts one file under the link key and stores it, inline or
// in the object store.
func (s *LinkService) addContent(ctx context.Context, db dbx.DBTX, link *models.Link, in ContentInput) (*models.Content, error) {
	data, contentType := in.Data, strings.TrimSpace(in.ContentType)
	if contentType == "" {
		contentType = common.ContentTypeFHIRJSON
	}
	if !IsSHLContentType(contentType) {
		wrapped, err := WrapDocumentReference(data, contentType, in.FileName)
		if err != nil {
			return nil, err
		}
		data, contentType = wrapped, ContentTypeDocumentReference
	}

	key, err := cryptox.DecodeKey(link.EncryptionKey)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	jwe, err := cryptox.EncryptJWE(data, key)
	if err != nil {
		return nil, err
	}

	c := &models.Content{
		ID:          newID(),
		LinkID:      link.ID,
		ContentType: contentType,
		Length:      len(jwe),
		CreatedAt:   s.now().UTC(),
	}
	if in.FileName != "" {
		name := in.FileName
		c.FileName = &name
	}

	if s.store != nil {
		k := storage.PayloadKey(link.ID, c.ID)
		if err := s.store.Put(ctx, k, []byte(jwe), common.ContentTypeJOSE); err != nil {
			return nil, fmt.Errorf("store payload: %w", err)
		}
		c.StorageKey = &k
	} else {
		c.Ciphertext = &jwe
	}

	if err := s.repomanager.Contents(db).Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *LinkService) manifestURL(link *models.Link) string {
	return s.baseURL + "/api/shl/manifest/" + link.ManifestID
}

// shlinkURL rebuilds the viewer URL from the stored link. It is
// deterministic, so the issuer can fetch it again at any time.
func (s *LinkService) shlinkURL(link *models.Link) (string, error) {
	p := shlink.Payload{
		URL:   s.manifestURL(link),
		Key:   link.EncryptionKey,
		Flag:  flagsOf(link),
		Label: link.Label,
		V:     shlink.Version,
	}
	if link.ExpiresAt != nil {
		p.Exp = link.ExpiresAt.Unix()
	}
	frag, err := shlink.Fragment(p)
	if err != nil {
		return "", errors.Join(common.ErrorInternal, err)
	}
	return s.baseURL + s.viewerPath + frag, nil
}

func flagsOf(l *models.Link) string {
	return shlink.BuildFlags(l.LongTerm, l.PasscodeProtected(), l.DirectAccess)
}

func summarizeLink(l *models.Link, now time.Time) LinkSummary {
	return LinkSummary{
		ID:             l.ID,
		Label:          l.Label,
		Flags:          flagsOf(l),
		State:          l.State(now),
		Active:         l.Active,
		SingleUse:      l.SingleUse,
		FailedAttempts: l.FailedAttempts,
		ExpiresAt:      l.ExpiresAt,
		CreatedAt:      l.CreatedAt,
	}
}

func summarizeContent(c *models.Content) ContentSummary {
	cs := ContentSummary{ID: c.ID, ContentType: c.ContentType, Length: c.Length, CreatedAt: c.CreatedAt}
	if c.FileName != nil {
		cs.FileName = *c.FileName
	}
	return cs
}
