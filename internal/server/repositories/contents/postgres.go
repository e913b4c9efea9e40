// Package contents provides a PostgreSQL-backed content repository.
package contents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

const contentColumns = `id, link_id, content_type, file_name, ciphertext, storage_key, length, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanContent(row scanner) (*models.Content, error) {
	c := &models.Content{}
	var fileName, ciphertext, storageKey sql.NullString
	if err := row.Scan(&c.ID, &c.LinkID, &c.ContentType, &fileName, &ciphertext, &storageKey, &c.Length, &c.CreatedAt); err != nil {
		return nil, err
	}
	if fileName.Valid {
		c.FileName = &fileName.String
	}
	if ciphertext.Valid {
		c.Ciphertext = &ciphertext.String
	}
	if storageKey.Valid {
		c.StorageKey = &storageKey.String
	}
	return c, nil
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Content) error {
	query := `
		INSERT INTO contents (id, link_id, content_type, file_name, ciphertext, storage_key, length, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.LinkID, c.ContentType, c.FileName, c.Ciphertext, c.StorageKey,
		c.Length, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM contents WHERE id = $1`
	c, err := scanContent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) ListByLink(ctx context.Context, linkID string) ([]*models.Content, error) {
	query := `
		SELECT ` + contentColumns + `
		FROM contents
		WHERE link_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, linkID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Content, 0)
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
