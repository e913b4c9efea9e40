// Package accesslogs provides a PostgreSQL-backed access log.
package accesslogs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/shlink/internal/dbx"
	"github.com/dmitrijs2005/shlink/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, e *models.AccessLog) error {
	query := `
		INSERT INTO access_logs (id, link_id, action, recipient, ip_address, user_agent, success, failure_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query, e.ID, e.LinkID, string(e.Action), e.Recipient, e.IPAddress, e.UserAgent,
		e.Success, e.FailureReason, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByLink(ctx context.Context, linkID string, limit, offset int) ([]*models.AccessLog, error) {
	query := `
		SELECT id, link_id, action, recipient, ip_address, user_agent, success, failure_reason, created_at
		FROM access_logs
		WHERE link_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, linkID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.AccessLog, 0)
	for rows.Next() {
		e := &models.AccessLog{}
		var (
			action string
			reason sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.LinkID, &action, &e.Recipient, &e.IPAddress, &e.UserAgent, &e.Success,
			&reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		e.Action = models.AccessAction(action)
		if reason.Valid {
			e.FailureReason = &reason.String
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) count(ctx context.Context, query, linkID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, linkID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) CountByLink(ctx context.Context, linkID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM access_logs WHERE link_id = $1`, linkID)
}

func (r *PostgresRepository) CountSuccessful(ctx context.Context, linkID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM access_logs WHERE link_id = $1 AND success`, linkID)
}
