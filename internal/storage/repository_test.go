package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func setupMockRepo(t *testing.T) (*SQLiteRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newRepository(db), mock
}

func TestInTx_Commit(t *testing.T) {
	repo, mock := setupMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO accounts").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	var created core.Account
	err := repo.InTx(context.Background(), func(q *Queries) error {
		var err error
		created, err = q.CreateAccount(context.Background(), core.Account{
			OrganizationID: 1, Name: "Cash", Type: core.AccountCash, Currency: "EUR", Active: true, CreatedAt: testNow,
		})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_RollbackOnCallbackError(t *testing.T) {
	repo, mock := setupMockRepo(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts SET active").
		WithArgs(false, int64(1), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := repo.InTx(context.Background(), func(q *Queries) error {
		if err := q.SetAccountActive(context.Background(), 1, 3, false); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_BeginFailure(t *testing.T) {
	repo, mock := setupMockRepo(t)
	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	called := false
	err := repo.InTx(context.Background(), func(*Queries) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslate_PassesThroughForeignErrors(t *testing.T) {
	err := errors.New("disk I/O error")
	assert.Same(t, err, translate(err))
}
