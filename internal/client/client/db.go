package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/shlink/internal/client/migrations"
	"github.com/dmitrijs2005/shlink/internal/client/repositories/history"
	"github.com/pressly/goose/v3"
)

// Repositories groups the viewer's local stores.
type Repositories struct {
	History history.Repository
	DB      *sql.DB
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the SQLite file at dsn and brings its schema up to date.
// The caller owns Repositories.DB.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repositories{
		History: history.NewSQLiteRepository(db),
		DB:      db,
	}, nil
}
