package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/shlink/internal/dbx"
	"github.com/dmitrijs2005/shlink/internal/logging"
	"github.com/dmitrijs2005/shlink/internal/server/models"
	"github.com/dmitrijs2005/shlink/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// AccessInfo describes who is asking for a link.
type AccessInfo struct {
	Recipient string
	IPAddress string
	UserAgent string
}

// Failure reasons written to the access log.
const (
	reasonExpired         = "expired"
	reasonRevoked         = models.ReasonRevoked
	reasonLocked          = models.ReasonLocked
	reasonConsumed        = models.ReasonConsumed
	reasonInactive        = "inactive"
	reasonInvalidPasscode = "invalid passcode"
	reasonNotDirect       = "direct access not enabled"
	reasonInvalidToken    = "invalid token"
	reasonInternal        = "internal error"
)

// AuditLog appends access records. A failed write never changes the outcome
// of the request being audited; it is reported through the logger instead.
type AuditLog struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewAuditLog(db dbx.DBTX, m repomanager.RepositoryManager, logger logging.Logger) *AuditLog {
	return &AuditLog{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "audit"),
		now:         time.Now,
	}
}

// Success records a served request.
func (a *AuditLog) Success(ctx context.Context, linkID string, action models.AccessAction, info AccessInfo) {
	a.record(ctx, linkID, action, info, "")
}

// Failure records a refused request with its reason.
func (a *AuditLog) Failure(ctx context.Context, linkID string, action models.AccessAction, info AccessInfo, reason string) {
	a.record(ctx, linkID, action, info, reason)
}

func (a *AuditLog) record(ctx context.Context, linkID string, action models.AccessAction, info AccessInfo, reason string) {
	e := &models.AccessLog{
		ID:        uuid.NewString(),
		LinkID:    linkID,
		Action:    action,
		Recipient: info.Recipient,
		IPAddress: info.IPAddress,
		UserAgent: info.UserAgent,
		Success:   reason == "",
		CreatedAt: a.now().UTC(),
	}
	if reason != "" {
		e.FailureReason = &reason
	}

	if err := a.repomanager.AccessLogs(a.db).Append(ctx, e); err != nil {
		a.logger.Error(ctx, "access log write failed",
			"link_id", linkID, "action", string(action), "error", err)
	}
}
