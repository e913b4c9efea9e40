// Package services contains the server-side business logic: issuing links,
// gating manifest and file requests, auditing every access and rendering QR
// codes. Services talk to storage only through repomanager so that the same
// code runs against *sql.DB or inside a transaction.
package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/shlink/internal/dbx"
	"github.com/google/uuid"
)

// txRunner executes fn atomically. The production runner opens a database
// transaction; tests substitute a runner that calls fn directly.
type txRunner func(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error

func sqlTxRunner(db *sql.DB) txRunner {
	return func(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
		return dbx.WithTx(ctx, db, nil, fn)
	}
}

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Content       []T `json:"content"`
	TotalElements int `json:"totalElements"`
	Page          int `json:"page"`
	Size          int `json:"size"`
}

// clampPage normalises page and size; page is zero based.
func clampPage(page, size, def, max int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = def
	}
	if size > max {
		size = max
	}
	return page, size
}

// newID is replaced in tests that need predictable identifiers.
var newID = uuid.NewString
