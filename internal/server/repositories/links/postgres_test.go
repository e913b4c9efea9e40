package links

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
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

var linkCols = []string{"id", "manifest_id", "encryption_key", "passcode_hash", "label", "single_use", "long_term",
	"direct_access", "expires_at", "active", "failed_attempts", "deactivation_reason", "created_at", "updated_at"}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	hash := "$2a$10$x"
	l := &models.Link{ID: "l1", ManifestID: "m1", EncryptionKey: "k", PasscodeHash: &hash, Label: "lbl",
		SingleUse: true, CreatedAt: now}

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+links\b.*VALUES\s*\(\$1,.*\$10\)\s*$`).
		WithArgs("l1", "m1", "k", &hash, "lbl", true, false, false, sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), l))
	assert.True(t, l.Active)
	assert.Equal(t, now, l.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+links`).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.Link{ID: "l1"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByManifestID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	exp := now.Add(time.Hour)
	rows := sqlmock.NewRows(linkCols).
		AddRow("l1", "m1", "k", nil, "label", false, true, false, exp, true, 2, nil, now, now)

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+links\s+WHERE\s+manifest_id\s*=\s*\$1$`).
		WithArgs("m1").
		WillReturnRows(rows)

	l, err := repo.GetByManifestID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "l1", l.ID)
	assert.Nil(t, l.PasscodeHash)
	assert.Nil(t, l.DeactivationReason)
	require.NotNil(t, l.ExpiresAt)
	assert.True(t, l.ExpiresAt.Equal(exp))
	assert.True(t, l.LongTerm)
	assert.Equal(t, 2, l.FailedAttempts)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+links\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestList_AndCount(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	reason := models.ReasonRevoked
	rows := sqlmock.NewRows(linkCols).
		AddRow("l2", "m2", "k", "hash", "", true, false, false, nil, false, 0, reason, now, now).
		AddRow("l1", "m1", "k", nil, "", false, false, false, nil, true, 0, nil, now, now)

	mock.ExpectQuery(`(?s)FROM\s+links\s+WHERE\s+\(\$1::boolean IS NULL OR active = \$1\)\s+ORDER BY created_at DESC, id\s+LIMIT \$2 OFFSET \$3`).
		WithArgs(sqlmock.AnyArg(), 20, 40).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM links`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	got, err := repo.List(context.Background(), nil, 20, 40)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].DeactivationReason)
	assert.Equal(t, models.ReasonRevoked, *got[0].DeactivationReason)
	assert.True(t, got[0].PasscodeProtected())

	n, err := repo.Count(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

const failureQuery = `(?s)^\s*UPDATE\s+links\s+SET\s+failed_attempts\s*=\s*failed_attempts\s*\+\s*1,.*WHERE\s+id\s*=\s*\$1\s+AND\s+active\s+RETURNING\s+failed_attempts,\s*active\s*$`

func TestRecordPasscodeFailure_BelowLimit(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(failureQuery).
		WithArgs("l1", 10).
		WillReturnRows(sqlmock.NewRows([]string{"failed_attempts", "active"}).AddRow(1, true))

	n, active, err := repo.RecordPasscodeFailure(context.Background(), "l1", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, active)
}

func TestRecordPasscodeFailure_ReachesLimit(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(failureQuery).
		WithArgs("l1", 3).
		WillReturnRows(sqlmock.NewRows([]string{"failed_attempts", "active"}).AddRow(3, false))

	n, active, err := repo.RecordPasscodeFailure(context.Background(), "l1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, active)
}

func TestRecordPasscodeFailure_AlreadyInactive(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(failureQuery).
		WithArgs("l1", 3).
		WillReturnError(sql.ErrNoRows)

	_, _, err := repo.RecordPasscodeFailure(context.Background(), "l1", 3)
	assert.ErrorIs(t, err, common.ErrInactive)
}

func TestResetFailures(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*UPDATE\s+links\s+SET\s+failed_attempts\s*=\s*0.*WHERE\s+id\s*=\s*\$1\s+AND\s+active\s*$`
	mock.ExpectExec(q).WithArgs("l1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("l1").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.ResetFailures(context.Background(), "l1"))
	assert.ErrorIs(t, repo.ResetFailures(context.Background(), "l1"), common.ErrInactive)
}

func TestConsume_ExactlyOnce(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*UPDATE\s+links\s+SET\s+active\s*=\s*FALSE,\s*deactivation_reason\s*=\s*'consumed'.*WHERE\s+id\s*=\s*\$1\s+AND\s+active\s*$`
	mock.ExpectExec(q).WithArgs("l1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("l1").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Consume(context.Background(), "l1"))
	assert.ErrorIs(t, repo.Consume(context.Background(), "l1"), common.ErrInactive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsume_UnexpectedRows(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+links`).WithArgs("l1").WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.Consume(context.Background(), "l1")
	assert.EqualError(t, err, "unexpected rows affected: 2")
}

func TestRevoke(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*UPDATE\s+links\s+SET\s+active\s*=\s*FALSE,\s*deactivation_reason\s*=\s*'revoked'.*WHERE\s+id\s*=\s*\$1\s*$`
	mock.ExpectExec(q).WithArgs("l1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q).WithArgs("l1").WillReturnError(errors.New("boom"))

	require.NoError(t, repo.Revoke(context.Background(), "l1"))
	assert.ErrorIs(t, repo.Revoke(context.Background(), "nope"), common.ErrorNotFound)
	assert.ErrorContains(t, repo.Revoke(context.Background(), "l1"), "db error: boom")
}
