// Package filetokens declares storage for single-use file download tokens.
package filetokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/shlink/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, t *models.FileToken) error

	// Consume marks an unexpired, unused token as used at now and returns it.
	// Unknown, expired or already used tokens yield common.ErrInvalidToken.
	Consume(ctx context.Context, jti string, now time.Time) (*models.FileToken, error)

	// DeleteExpired removes tokens that expired before the given time.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
