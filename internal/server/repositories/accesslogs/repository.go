// Package accesslogs declares the append-only audit trail of link accesses.
package accesslogs

import (
	"context"

	"github.com/dmitrijs2005/shlink/internal/server/models"
)

// Repository appends and reads access records. There is no update or delete.
type Repository interface {
	Append(ctx context.Context, e *models.AccessLog) error

	// ListByLink returns records newest first.
	ListByLink(ctx context.Context, linkID string, limit, offset int) ([]*models.AccessLog, error)
	CountByLink(ctx context.Context, linkID string) (int, error)

	// CountSuccessful counts only records with success = true.
	CountSuccessful(ctx context.Context, linkID string) (int, error)
}
