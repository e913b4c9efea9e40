package history

import (
	"context"

	"github.com/dmitrijs2005/shlink/internal/client/models"
)

type Repository interface {
	Add(ctx context.Context, e *models.HistoryEntry) error
	// List returns the newest entries first, at most limit of them.
	List(ctx context.Context, limit int) ([]models.HistoryEntry, error)
	Clear(ctx context.Context) error
}
