package filetokens

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/shlink/internal/common"
	"github.com/dmitrijs2005/shlink/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	tok := &models.FileToken{JTI: "j1", LinkID: "l1", ContentID: "c1", ExpiresAt: now.Add(time.Hour), CreatedAt: now}

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+file_tokens\b.*VALUES\s*\(\$1, \$2, \$3, \$4, \$5\)$`).
		WithArgs("j1", "l1", "c1", tok.ExpiresAt, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), tok))
	require.NoError(t, mock.ExpectationsWereMet())
}

const consumeQuery = `(?s)^UPDATE\s+file_tokens\s+SET\s+consumed_at\s*=\s*\$2\s+WHERE\s+jti\s*=\s*\$1\s+AND\s+consumed_at IS NULL\s+AND\s+expires_at > \$2\s+RETURNING`

func TestConsume_FirstWins(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(consumeQuery).
		WithArgs("j1", now).
		WillReturnRows(sqlmock.NewRows([]string{"link_id", "content_id", "expires_at", "created_at"}).
			AddRow("l1", "c1", now.Add(time.Hour), now.Add(-time.Minute)))
	mock.ExpectQuery(consumeQuery).
		WithArgs("j1", now).
		WillReturnError(sql.ErrNoRows)

	tok, err := repo.Consume(context.Background(), "j1", now)
	require.NoError(t, err)
	assert.Equal(t, "c1", tok.ContentID)
	require.NotNil(t, tok.ConsumedAt)
	assert.Equal(t, now, *tok.ConsumedAt)

	_, err = repo.Consume(context.Background(), "j1", now)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestConsume_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(consumeQuery).WillReturnError(errors.New("conn reset"))

	_, err := repo.Consume(context.Background(), "j1", time.Now())
	assert.ErrorContains(t, err, "db error: conn reset")
}

func TestDeleteExpired(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`^DELETE FROM file_tokens WHERE expires_at < \$1$`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
