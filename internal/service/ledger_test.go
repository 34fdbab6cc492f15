package service

import (
	"context"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quanghuy/fieldbook/internal/model"
	"github.com/quanghuy/fieldbook/internal/repository"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testTime() time.Time {
	return time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
}

const (
	ensureWalletSQL = `INSERT INTO wallets \(user_id, balance\) VALUES \(\?, 0\)`
	lockBalanceSQL  = `SELECT balance FROM wallets WHERE user_id = \? FOR UPDATE`
	addBalanceSQL   = `UPDATE wallets SET balance = balance \+ \? WHERE user_id = \?`
	appendTxnSQL    = `INSERT INTO wallet_transactions`
)

func TestLedgerCreditAppendsEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(repository.NewWalletRepo(db), testLogger())

	mock.ExpectBegin()
	mock.ExpectExec(ensureWalletSQL).WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(lockBalanceSQL).WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(1000))
	mock.ExpectExec(addBalanceSQL).WithArgs(int64(500), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(appendTxnSQL).
		WithArgs(uint64(7), int64(500), model.TxTypeTopup, uint64(42), "Wallet top-up approved").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	ref := uint64(42)
	err = ledger.Credit(context.Background(), 7, 500, model.TxTypeTopup, &ref, "Wallet top-up approved")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerCreditRejectsNonPositiveAmount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(repository.NewWalletRepo(db), testLogger())

	for _, amount := range []int64{0, -5} {
		mock.ExpectBegin()
		mock.ExpectRollback()
		err = ledger.Credit(context.Background(), 7, amount, model.TxTypeTopup, nil, "bad amount")
		assert.ErrorIs(t, err, repository.ErrInvalidAmount)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerDebitRecordsNegativeAmount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(repository.NewWalletRepo(db), testLogger())

	mock.ExpectBegin()
	mock.ExpectExec(ensureWalletSQL).WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(lockBalanceSQL).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(900))
	mock.ExpectExec(addBalanceSQL).WithArgs(int64(-600), uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(appendTxnSQL).
		WithArgs(uint64(3), int64(-600), model.TxTypeBooking, uint64(9), "Field booking payment").
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectCommit()

	ref := uint64(9)
	err = ledger.Debit(context.Background(), 3, 600, model.TxTypeBooking, &ref, "Field booking payment")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerDebitInsufficientBalanceRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(repository.NewWalletRepo(db), testLogger())

	mock.ExpectBegin()
	mock.ExpectExec(ensureWalletSQL).WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(lockBalanceSQL).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(100))
	mock.ExpectRollback()

	err = ledger.Debit(context.Background(), 3, 600, model.TxTypeBooking, nil, "too expensive")
	assert.ErrorIs(t, err, repository.ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerGetBalanceEnsuresWallet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger(repository.NewWalletRepo(db), testLogger())

	mock.ExpectExec(ensureWalletSQL).WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, user_id, balance, created_at, updated_at FROM wallets WHERE user_id = ?`)).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance", "created_at", "updated_at"}).
			AddRow(1, 5, 2500, testTime(), testTime()))

	balance, err := ledger.GetBalance(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}
