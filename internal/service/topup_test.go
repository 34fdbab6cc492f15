package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quanghuy/fieldbook/internal/model"
	"github.com/quanghuy/fieldbook/internal/repository"
)

var (
	topupLockSQL    = regexp.QuoteMeta(`FROM wallet_topups WHERE id = ? AND status = ? FOR UPDATE`)
	topupCountSQL   = regexp.QuoteMeta(`SELECT COUNT(*) FROM wallet_topups WHERE id = ?`)
	topupApproveSQL = regexp.QuoteMeta(`UPDATE wallet_topups SET status = ?, approved_at = UTC_TIMESTAMP() WHERE id = ?`)
	topupRejectSQL  = regexp.QuoteMeta(`UPDATE wallet_topups SET status = ?, note = COALESCE(?, note), approved_at = UTC_TIMESTAMP() WHERE id = ?`)
)

var topupColNames = []string{"id", "user_id", "amount", "note", "status", "created_at", "approved_at"}

func topupServiceForTest(t *testing.T) (*TopupService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	topups := repository.NewTopupRepo(db)
	ledger := NewLedger(repository.NewWalletRepo(db), testLogger())
	return NewTopupService(topups, ledger, testLogger()), mock
}

func TestTopupCreateRejectsNonPositiveAmount(t *testing.T) {
	svc, mock := topupServiceForTest(t)

	_, err := svc.Create(context.Background(), 1, 0, "")
	assert.ErrorIs(t, err, repository.ErrInvalidAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopupCreateFilesPendingRequest(t *testing.T) {
	svc, mock := topupServiceForTest(t)

	mock.ExpectExec(`INSERT INTO wallet_topups`).
		WithArgs(uint64(1), int64(200000), "for weekend games", model.TopupPending).
		WillReturnResult(sqlmock.NewResult(3, 1))

	req, err := svc.Create(context.Background(), 1, 200000, "for weekend games")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), req.ID)
	assert.Equal(t, model.TopupPending, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopupApproveCreditsWalletOnce(t *testing.T) {
	svc, mock := topupServiceForTest(t)

	mock.ExpectBegin()
	mock.ExpectQuery(topupLockSQL).WithArgs(uint64(3), model.TopupPending).
		WillReturnRows(sqlmock.NewRows(topupColNames).
			AddRow(3, 1, 200000, nil, model.TopupPending, testTime(), nil))
	mock.ExpectExec(topupApproveSQL).WithArgs(model.TopupApproved, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(ensureWalletSQL).WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(lockBalanceSQL).WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(0))
	mock.ExpectExec(addBalanceSQL).WithArgs(int64(200000), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(appendTxnSQL).
		WithArgs(uint64(1), int64(200000), model.TxTypeTopup, uint64(3), "Wallet top-up approved").
		WillReturnResult(sqlmock.NewResult(40, 1))
	mock.ExpectCommit()

	err := svc.Approve(context.Background(), 3)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopupApproveAlreadyProcessed(t *testing.T) {
	svc, mock := topupServiceForTest(t)

	mock.ExpectBegin()
	mock.ExpectQuery(topupLockSQL).WithArgs(uint64(3), model.TopupPending).
		WillReturnRows(sqlmock.NewRows(topupColNames))
	mock.ExpectQuery(topupCountSQL).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := svc.Approve(context.Background(), 3)
	assert.ErrorIs(t, err, repository.ErrAlreadyProcessed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopupApproveMissingRequest(t *testing.T) {
	svc, mock := topupServiceForTest(t)

	mock.ExpectBegin()
	mock.ExpectQuery(topupLockSQL).WithArgs(uint64(3), model.TopupPending).
		WillReturnRows(sqlmock.NewRows(topupColNames))
	mock.ExpectQuery(topupCountSQL).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	err := svc.Approve(context.Background(), 3)
	assert.ErrorIs(t, err, repository.ErrTopupNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopupRejectLogsZeroAmountEntry(t *testing.T) {
	svc, mock := topupServiceForTest(t)

	mock.ExpectBegin()
	mock.ExpectQuery(topupLockSQL).WithArgs(uint64(3), model.TopupPending).
		WillReturnRows(sqlmock.NewRows(topupColNames).
			AddRow(3, 1, 200000, nil, model.TopupPending, testTime(), nil))
	mock.ExpectExec(topupRejectSQL).
		WithArgs(model.TopupRejected, "duplicate request", uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(ensureWalletSQL).WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(appendTxnSQL).
		WithArgs(uint64(1), int64(0), model.TxTypeTopupReject, uint64(3), "Top-up request rejected").
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectCommit()

	err := svc.Reject(context.Background(), 3, "duplicate request")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
