// Package filetokens provides a PostgreSQL-backed file token store.
package filetokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shlink/internal/common"
	"github.com/dmitrijs2005/shlink/internal/dbx"
	"github.com/dmitrijs2005/shlink/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.FileToken) error {
	query := `
		INSERT INTO file_tokens (jti, link_id, content_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query, t.JTI, t.LinkID, t.ContentID, t.ExpiresAt, t.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Consume(ctx context.Context, jti string, now time.Time) (*models.FileToken, error) {
	query := `
		UPDATE file_tokens
		SET consumed_at = $2
		WHERE jti = $1 AND consumed_at IS NULL AND expires_at > $2
		RETURNING link_id, content_id, expires_at, created_at
	`
	t := &models.FileToken{JTI: jti, ConsumedAt: &now}
	err := r.db.QueryRowContext(ctx, query, jti, now).Scan(&t.LinkID, &t.ContentID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM file_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
