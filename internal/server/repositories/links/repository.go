// Package links declares the persistence contract for issued links.
package links

import (
	"context"

	"github.com/dmitrijs2005/shlink/internal/server/models"
)

// Repository stores link records. State-changing methods are single
// conditional statements so that concurrent requests cannot interleave
// between a read and a write.
type Repository interface {
	Create(ctx context.Context, link *models.Link) error

	// GetByID and GetByManifestID return common.ErrorNotFound when absent.
	GetByID(ctx context.Context, id string) (*models.Link, error)
	GetByManifestID(ctx context.Context, manifestID string) (*models.Link, error)

	// List returns links newest first; active filters when non-nil.
	List(ctx context.Context, active *bool, limit, offset int) ([]*models.Link, error)
	Count(ctx context.Context, active *bool) (int, error)

	// RecordPasscodeFailure increments the failure counter of an active link
	// and deactivates it (reason "locked") once the counter reaches limit.
	// It returns the new counter and whether the link is still active, or
	// common.ErrInactive when the link was no longer active.
	RecordPasscodeFailure(ctx context.Context, id string, limit int) (int, bool, error)

	// ResetFailures zeroes the counter of an active link (common.ErrInactive otherwise).
	ResetFailures(ctx context.Context, id string) error

	// Consume deactivates an active single-use link (reason "consumed").
	// Exactly one caller can succeed; the others get common.ErrInactive.
	Consume(ctx context.Context, id string) error

	// Revoke deactivates a link on behalf of the issuer (reason "revoked").
	Revoke(ctx context.Context, id string) error
}
