package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*TxManager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewTxManager(db), mock
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	txm, mock := newMock(t)
	repo := NewBookingRepo(txm.DB())

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM booked_seats WHERE booking_id = ?")).
		WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	var released int64
	err := txm.WithTx(context.Background(), nil, func(ctx context.Context) error {
		var err error
		released, err = repo.DeleteClaims(ctx, 9)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	txm, mock := newMock(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := txm.WithTx(context.Background(), nil, func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	txm, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = txm.WithTx(context.Background(), nil, func(ctx context.Context) error { panic("kaboom") })
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxNestedReusesOuterTransaction(t *testing.T) {
	txm, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := 0
	err := txm.WithTx(context.Background(), nil, func(ctx context.Context) error {
		return txm.WithTx(ctx, nil, func(ctx context.Context) error {
			calls++
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.ErrorIs(t, classify(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}), ErrDuplicateClaim)
	assert.ErrorIs(t, classify(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"}), ErrLockConflict)
	assert.ErrorIs(t, classify(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout"}), ErrLockConflict)

	other := &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}
	assert.Same(t, other, classify(other))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}
