package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

func TestAtomicResolvesRefs(t *testing.T) {
	db, mock := newMockDB(t)

	unit := NewAtomic()
	parent := unit.Exec(`INSERT INTO parent (name) VALUES (?)`, "p")
	unit.Exec(`INSERT INTO child (parent_id, name) VALUES (?, ?)`, parent, "c")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO parent`).WithArgs("p").WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectExec(`INSERT INTO child`).WithArgs(int64(41), "c").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	ids, err := unit.Commit(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, []int64{41, 7}, ids)
	assert.Equal(t, 2, unit.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicRejectsForwardRef(t *testing.T) {
	db, mock := newMockDB(t)

	unit := NewAtomic()
	unit.Exec(`INSERT INTO child (parent_id) VALUES (?)`, Ref(1))
	unit.Exec(`INSERT INTO parent (name) VALUES (?)`, "p")

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := unit.Commit(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has not run yet")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicGuardRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	shortfall := errors.New("not enough")

	unit := NewAtomic()
	unit.Exec(`INSERT INTO parent (name) VALUES (?)`, "p")
	unit.ExecGuarded(func(ctx context.Context, tx *sqlx.Tx) error {
		return shortfall
	}, `UPDATE stock SET n = n - 1 WHERE n >= 1`)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO parent`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE stock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := unit.Commit(context.Background(), db)
	assert.Same(t, shortfall, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicGuardWithoutReason(t *testing.T) {
	db, mock := newMockDB(t)

	unit := NewAtomic()
	unit.ExecGuarded(func(ctx context.Context, tx *sqlx.Tx) error { return nil }, `UPDATE t SET a = 1`)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE t`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := unit.Commit(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matched no rows")
}

func TestAtomicStatementFailure(t *testing.T) {
	db, mock := newMockDB(t)

	unit := NewAtomic()
	unit.Exec(`INSERT INTO parent (name) VALUES (?)`, "p")
	unit.Exec(`INSERT INTO child (name) VALUES (?)`, "c")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO parent`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO child`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := unit.Commit(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "atomic step 1")
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicEmpty(t *testing.T) {
	db, mock := newMockDB(t)

	ids, err := NewAtomic().Commit(context.Background(), db)
	assert.NoError(t, err)
	assert.Nil(t, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
