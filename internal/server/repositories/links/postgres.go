// Package links provides a PostgreSQL-backed link repository.
package links

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shlink/internal/common"
	"github.com/dmitrijs2005/shlink/internal/dbx"
	"github.com/dmitrijs2005/shlink/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const linkColumns = `id, manifest_id, encryption_key, passcode_hash, label, single_use, long_term,
		direct_access, expires_at, active, failed_attempts, deactivation_reason, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanLink(row scanner) (*models.Link, error) {
	l := &models.Link{}
	var (
		passcodeHash, reason sql.NullString
		expiresAt            sql.NullTime
	)
	err := row.Scan(&l.ID, &l.ManifestID, &l.EncryptionKey, &passcodeHash, &l.Label, &l.SingleUse, &l.LongTerm,
		&l.DirectAccess, &expiresAt, &l.Active, &l.FailedAttempts, &reason, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if passcodeHash.Valid {
		l.PasscodeHash = &passcodeHash.String
	}
	if reason.Valid {
		l.DeactivationReason = &reason.String
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		l.ExpiresAt = &t
	}
	return l, nil
}

func (r *PostgresRepository) Create(ctx context.Context, l *models.Link) error {
	query := `
		INSERT INTO links (id, manifest_id, encryption_key, passcode_hash, label, single_use, long_term,
			direct_access, expires_at, active, failed_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, 0, $10, $10)
	`
	_, err := r.db.ExecContext(ctx, query, l.ID, l.ManifestID, l.EncryptionKey, l.PasscodeHash, l.Label,
		l.SingleUse, l.LongTerm, l.DirectAccess, l.ExpiresAt, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	l.Active = true
	l.FailedAttempts = 0
	l.UpdatedAt = l.CreatedAt
	return nil
}

func (r *PostgresRepository) get(ctx context.Context, column, value string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE ` + column + ` = $1`
	l, err := scanLink(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Link, error) {
	return r.get(ctx, "id", id)
}

func (r *PostgresRepository) GetByManifestID(ctx context.Context, manifestID string) (*models.Link, error) {
	return r.get(ctx, "manifest_id", manifestID)
}

func (r *PostgresRepository) List(ctx context.Context, active *bool, limit, offset int) ([]*models.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM links
		WHERE ($1::boolean IS NULL OR active = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, active, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Link, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context, active *bool) (int, error) {
	query := `SELECT COUNT(*) FROM links WHERE ($1::boolean IS NULL OR active = $1)`
	var n int
	if err := r.db.QueryRowContext(ctx, query, active).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) RecordPasscodeFailure(ctx context.Context, id string, limit int) (int, bool, error) {
	// Right-hand sides see the pre-update row, so failed_attempts + 1 is the new value.
	query := `
		UPDATE links
		SET failed_attempts = failed_attempts + 1,
			active = (failed_attempts + 1 < $2),
			deactivation_reason = CASE WHEN failed_attempts + 1 >= $2 THEN 'locked' ELSE deactivation_reason END,
			updated_at = now()
		WHERE id = $1 AND active
		RETURNING failed_attempts, active
	`
	var (
		attempts int
		active   bool
	)
	if err := r.db.QueryRowContext(ctx, query, id, limit).Scan(&attempts, &active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, common.ErrInactive
		}
		return 0, false, fmt.Errorf("db error: %w", err)
	}
	return attempts, active, nil
}

func (r *PostgresRepository) ResetFailures(ctx context.Context, id string) error {
	query := `
		UPDATE links
		SET failed_attempts = 0, updated_at = now()
		WHERE id = $1 AND active
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExactlyOne(res, common.ErrInactive)
}

func (r *PostgresRepository) Consume(ctx context.Context, id string) error {
	query := `
		UPDATE links
		SET active = FALSE, deactivation_reason = 'consumed', updated_at = now()
		WHERE id = $1 AND active
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExactlyOne(res, common.ErrInactive)
}

func (r *PostgresRepository) Revoke(ctx context.Context, id string) error {
	query := `
		UPDATE links
		SET active = FALSE, deactivation_reason = 'revoked', updated_at = now()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExactlyOne(res, common.ErrorNotFound)
}
