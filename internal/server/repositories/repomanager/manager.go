package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/shlink/internal/dbx"
	"github.com/dmitrijs2005/shlink/internal/server/repositories/accesslogs"
	"github.com/dmitrijs2005/shlink/internal/server/repositories/contents"
	"github.com/dmitrijs2005/shlink/internal/server/repositories/filetokens"
	"github.com/dmitrijs2005/shlink/internal/server/repositories/links"
)

// RepositoryManager vends repositories bound to a handle, so services can
// run the same repository against *sql.DB or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Links(db dbx.DBTX) links.Repository
	Contents(db dbx.DBTX) contents.Repository
	AccessLogs(db dbx.DBTX) accesslogs.Repository
	FileTokens(db dbx.DBTX) filetokens.Repository
}
