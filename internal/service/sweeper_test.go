package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quanghuy/fieldbook/internal/model"
	"github.com/quanghuy/fieldbook/internal/repository"
)

func sweeperForTest(t *testing.T, now Clock) (*Sweeper, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bookings := repository.NewBookingRepo(db)
	ledger := NewLedger(repository.NewWalletRepo(db), testLogger())
	return NewSweeper(bookings, ledger, 30*time.Minute, 5*time.Minute, now, testLogger()), mock
}

const expiredSelectSQL = `FROM bookings\s+WHERE status = \? AND created_at <= \?\s+FOR UPDATE`

func TestSweeperRefundsExpiredPending(t *testing.T) {
	now := time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)
	sw, mock := sweeperForTest(t, func() time.Time { return now })

	cutoff := now.Add(-30 * time.Minute)
	created := now.Add(-45 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(expiredSelectSQL).
		WithArgs(model.BookingPending, cutoff).
		WillReturnRows(sqlmock.NewRows(bookingColNames).
			AddRow(10, 1, 2, "2025-06-20", "08:00:00", "10:00:00",
				400000, 400000, model.BookingPending, model.PayMethodWallet, model.PaymentStatusPaid,
				created, nil).
			AddRow(11, 4, 2, "2025-06-20", "10:00:00", "12:00:00",
				300000, 300000, model.BookingPending, model.PayMethodWallet, model.PaymentStatusPaid,
				created, nil))

	for _, b := range []struct {
		id     uint64
		user   uint64
		amount int64
	}{{10, 1, 400000}, {11, 4, 300000}} {
		mock.ExpectExec(ensureWalletSQL).WithArgs(b.user).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(lockBalanceSQL).WithArgs(b.user).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(0))
		mock.ExpectExec(addBalanceSQL).WithArgs(b.amount, b.user).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(appendTxnSQL).
			WithArgs(b.user, b.amount, model.TxTypeRefund, b.id, "Refund for expired booking").
			WillReturnResult(sqlmock.NewResult(30, 1))
		mock.ExpectExec(cancelRefSQL).
			WithArgs(model.BookingCancelled, model.PaymentStatusRefunded, b.id).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	swept, err := sw.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, swept)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweeperNoExpiredBookings(t *testing.T) {
	now := time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)
	sw, mock := sweeperForTest(t, func() time.Time { return now })

	mock.ExpectBegin()
	mock.ExpectQuery(expiredSelectSQL).
		WithArgs(model.BookingPending, now.Add(-30*time.Minute)).
		WillReturnRows(sqlmock.NewRows(bookingColNames))
	mock.ExpectCommit()

	swept, err := sw.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, swept)
	assert.NoError(t, mock.ExpectationsWereMet())
}
