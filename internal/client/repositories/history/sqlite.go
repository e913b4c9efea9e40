package history

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/shlink/internal/client/models"
	"github.com/dmitrijs2005/shlink/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, e *models.HistoryEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO history (id, label, manifest_url, flags, status, file_count, success, error, opened_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Label, e.ManifestURL, e.Flags, e.Status, e.FileCount, e.Success, e.Error, e.OpenedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to add history entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, label, manifest_url, flags, status, file_count, success, error, opened_at
		FROM history
		ORDER BY opened_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	result := make([]models.HistoryEntry, 0)
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.Label, &e.ManifestURL, &e.Flags, &e.Status,
			&e.FileCount, &e.Success, &e.Error, &e.OpenedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}

	return result, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM history`)
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
