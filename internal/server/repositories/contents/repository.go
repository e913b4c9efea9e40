// Package contents declares the persistence contract for encrypted files.
package contents

import (
	"context"

	"github.com/dmitrijs2005/shlink/internal/server/models"
)

// Repository stores content rows. Rows are immutable once written.
type Repository interface {
	Create(ctx context.Context, c *models.Content) error

	// Get returns common.ErrorNotFound when absent.
	Get(ctx context.Context, id string) (*models.Content, error)

	// ListByLink returns the link's files oldest first.
	ListByLink(ctx context.Context, linkID string) ([]*models.Content, error)
}
