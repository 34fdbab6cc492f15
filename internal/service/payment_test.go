package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quanghuy/fieldbook/internal/model"
	"github.com/quanghuy/fieldbook/internal/repository"
)

// fakeGateway records the checkout request instead of calling MoMo.
type fakeGateway struct {
	amount  int64
	orderID string
	err     error
}

func (g *fakeGateway) CreateQR(ctx context.Context, amount int64, orderID string) (string, error) {
	g.amount = amount
	g.orderID = orderID
	if g.err != nil {
		return "", g.err
	}
	return "https://pay.example/qr", nil
}

var (
	paymentByTxnSQL     = regexp.QuoteMeta(`FROM payments WHERE transaction_id = ? LIMIT 1`)
	paymentByBookingSQL = regexp.QuoteMeta(`FROM payments WHERE booking_id = ? LIMIT 1`)
	markDepositPaidSQL  = regexp.QuoteMeta(`UPDATE payments
         SET status = ?, deposit_paid_at = UTC_TIMESTAMP(), payment_date = UTC_TIMESTAMP()
         WHERE id = ? AND status = ?`)
	refundStatusSQL  = regexp.QuoteMeta(`UPDATE payments SET refund_status = ? WHERE id = ? AND refund_status = ?`)
	cancelPlainSQL   = regexp.QuoteMeta(`UPDATE bookings SET status = ? WHERE id = ?`)
	paymentByIDSQL   = regexp.QuoteMeta(`FROM payments WHERE id = ? LIMIT 1`)
	markCompletedSQL = regexp.QuoteMeta(`UPDATE payments SET status = ?, payment_date = UTC_TIMESTAMP() WHERE id = ?`)
	confirmBookSQL   = regexp.QuoteMeta(`UPDATE bookings SET status = ?, confirmed_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`)
)

var paymentColNames = []string{
	"id", "booking_id", "amount", "deposit_amount", "payment_method",
	"status", "refund_status", "transaction_id", "deposit_paid_at", "payment_date", "created_at",
}

func paymentServiceForTest(t *testing.T) (*PaymentService, *fakeGateway, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	payments := repository.NewPaymentRepo(db)
	bookingsRepo := repository.NewBookingRepo(db)
	fields := repository.NewFieldRepo(db)
	ledger := NewLedger(repository.NewWalletRepo(db), testLogger())
	bookings := NewBookingService(bookingsRepo, fields, ledger, nil, BookingPolicy{MinHours: 1, MaxHours: 4}, nil, testLogger())
	gw := &fakeGateway{}
	return NewPaymentService(payments, bookings, gw, testLogger()), gw, mock
}

func pendingBookingRow(id, userID uint64, total int64) *sqlmock.Rows {
	return sqlmock.NewRows(bookingColNames).
		AddRow(id, userID, 2, "2025-06-20", "08:00:00", "10:00:00",
			total, 0, model.BookingPending, model.PayMethodGateway, model.PaymentStatusPending,
			testTime(), nil)
}

func walletPaidBookingRow(id, userID uint64, total int64) *sqlmock.Rows {
	return sqlmock.NewRows(bookingColNames).
		AddRow(id, userID, 2, "2025-06-20", "08:00:00", "10:00:00",
			total, total, model.BookingPending, model.PayMethodWallet, model.PaymentStatusPaid,
			testTime(), nil)
}

func TestCreateDepositChargesThirtyPercent(t *testing.T) {
	svc, gw, mock := paymentServiceForTest(t)

	mock.ExpectQuery(bookingByIDSQL).WithArgs(uint64(10)).
		WillReturnRows(pendingBookingRow(10, 1, 500000))
	mock.ExpectExec(`INSERT INTO payments`).
		WithArgs(uint64(10), int64(500000), int64(150000), model.PayMethodGateway,
			model.DepositPending, model.RefundNone, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(5, 1))

	qr, err := svc.CreateDeposit(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), qr.DepositAmount)
	assert.Equal(t, int64(150000), gw.amount)
	assert.Equal(t, "https://pay.example/qr", qr.PayURL)
	assert.Regexp(t, `^ORDER_10_`, qr.OrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDepositRejectsConfirmedBooking(t *testing.T) {
	svc, _, mock := paymentServiceForTest(t)

	confirmedAt := testTime()
	mock.ExpectQuery(bookingByIDSQL).WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows(bookingColNames).
			AddRow(10, 1, 2, "2025-06-20", "08:00:00", "10:00:00",
				500000, 0, model.BookingConfirmed, model.PayMethodGateway, model.PaymentStatusPending,
				testTime(), confirmedAt))

	_, err := svc.CreateDeposit(context.Background(), 1, 10)
	assert.ErrorIs(t, err, repository.ErrAlreadyConfirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDepositRejectsForeignBooking(t *testing.T) {
	svc, _, mock := paymentServiceForTest(t)

	mock.ExpectQuery(bookingByIDSQL).WithArgs(uint64(10)).
		WillReturnRows(pendingBookingRow(10, 99, 500000))

	_, err := svc.CreateDeposit(context.Background(), 1, 10)
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDepositGatewayFailureCreatesNothing(t *testing.T) {
	svc, gw, mock := paymentServiceForTest(t)
	gw.err = errors.New("gateway down")

	mock.ExpectQuery(bookingByIDSQL).WithArgs(uint64(10)).
		WillReturnRows(pendingBookingRow(10, 1, 500000))

	_, err := svc.CreateDeposit(context.Background(), 1, 10)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookMarksDepositPaid(t *testing.T) {
	svc, _, mock := paymentServiceForTest(t)

	mock.ExpectQuery(paymentByTxnSQL).WithArgs("ORDER_10_x").
		WillReturnRows(sqlmock.NewRows(paymentColNames).
			AddRow(5, 10, 500000, 150000, model.PayMethodGateway,
				model.DepositPending, model.RefundNone, "ORDER_10_x", nil, nil, testTime()))
	mock.ExpectExec(markDepositPaidSQL).
		WithArgs(model.DepositCompleted, uint64(5), model.DepositPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.HandleGatewayCallback(context.Background(), "ORDER_10_x", 0)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookUnknownOrderIsAcknowledged(t *testing.T) {
	svc, _, mock := paymentServiceForTest(t)

	mock.ExpectQuery(paymentByTxnSQL).WithArgs("ORDER_99_x").
		WillReturnRows(sqlmock.NewRows(paymentColNames))

	err := svc.HandleGatewayCallback(context.Background(), "ORDER_99_x", 0)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookFailureCodeLeavesPaymentPending(t *testing.T) {
	svc, _, mock := paymentServiceForTest(t)

	mock.ExpectQuery(paymentByTxnSQL).WithArgs("ORDER_10_x").
		WillReturnRows(sqlmock.NewRows(paymentColNames).
			AddRow(5, 10, 500000, 150000, model.PayMethodGateway,
				model.DepositPending, model.RefundNone, "ORDER_10_x", nil, nil, testTime()))

	err := svc.HandleGatewayCallback(context.Background(), "ORDER_10_x", 1006)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func completedPaymentRow(id, bookingID uint64) *sqlmock.Rows {
	return sqlmock.NewRows(paymentColNames).
		AddRow(id, bookingID, 500000, 150000, model.PayMethodGateway,
			model.DepositCompleted, model.RefundNone, "ORDER_10_x", testTime(), testTime(), testTime())
}

func TestResolveOnCancelForfeitsConfirmedBooking(t *testing.T) {
	svc, _, mock := paymentServiceForTest(t)

	confirmedAt := testTime()
	mock.ExpectQuery(bookingByIDSQL).WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows(bookingColNames).
			AddRow(10, 1, 2, "2025-06-20", "08:00:00", "10:00:00",
				500000, 0, model.BookingConfirmed, model.PayMethodGateway, model.PaymentStatusPending,
				testTime(), confirmedAt))
	mock.ExpectQuery(paymentByBookingSQL).WithArgs(uint64(10)).
		WillReturnRows(completedPaymentRow(5, 10))
	mock.ExpectExec(refundStatusSQL).
		WithArgs(model.RefundForfeited, uint64(5), model.RefundNone).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Status-only cancel, no wallet movement.
	mock.ExpectBegin()
	mock.ExpectQuery(bookingLockSQL).WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows(bookingColNames).
			AddRow(10, 1, 2, "2025-06-20", "08:00:00", "10:00:00",
				500000, 0, model.BookingConfirmed, model.PayMethodGateway, model.PaymentStatusPending,
				testTime(), confirmedAt))
	mock.ExpectExec(cancelPlainSQL).
		WithArgs(model.BookingCancelled, uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	forfeited, err := svc.ResolveOnCancel(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.True(t, forfeited)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveOnCancelRefundsUnconfirmedBooking(t *testing.T) {
	svc, _, mock := paymentServiceForTest(t)

	mock.ExpectQuery(bookingByIDSQL).WithArgs(uint64(10)).
		WillReturnRows(pendingBookingRow(10, 1, 500000))
	mock.ExpectQuery(paymentByBookingSQL).WithArgs(uint64(10)).
		WillReturnRows(completedPaymentRow(5, 10))
	mock.ExpectExec(refundStatusSQL).
		WithArgs(model.RefundRefunded, uint64(5), model.RefundNone).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectBegin()
	mock.ExpectQuery(bookingLockSQL).WithArgs(uint64(10)).
		WillReturnRows(pendingBookingRow(10, 1, 500000))
	mock.ExpectExec(cancelPlainSQL).
		WithArgs(model.BookingCancelled, uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	forfeited, err := svc.ResolveOnCancel(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.False(t, forfeited)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveOnCancelSecondAttemptBlocked(t *testing.T) {
	svc, _, mock := paymentServiceForTest(t)

	mock.ExpectQuery(bookingByIDSQL).WithArgs(uint64(10)).
		WillReturnRows(pendingBookingRow(10, 1, 500000))
	mock.ExpectQuery(paymentByBookingSQL).WithArgs(uint64(10)).
		WillReturnRows(completedPaymentRow(5, 10))
	// refund_status already moved off 'none': zero rows affected.
	mock.ExpectExec(refundStatusSQL).
		WithArgs(model.RefundRefunded, uint64(5), model.RefundNone).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := svc.ResolveOnCancel(context.Background(), 1, 10)
	assert.ErrorIs(t, err, repository.ErrAlreadyProcessed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveOnCancelRequiresCompletedDeposit(t *testing.T) {
	svc, _, mock := paymentServiceForTest(t)

	mock.ExpectQuery(bookingByIDSQL).WithArgs(uint64(10)).
		WillReturnRows(pendingBookingRow(10, 1, 500000))
	mock.ExpectQuery(paymentByBookingSQL).WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows(paymentColNames).
			AddRow(5, 10, 500000, 150000, model.PayMethodGateway,
				model.DepositPending, model.RefundNone, "ORDER_10_x", nil, nil, testTime()))

	_, err := svc.ResolveOnCancel(context.Background(), 1, 10)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDepositRejectsWalletPaidBooking(t *testing.T) {
	svc, _, mock := paymentServiceForTest(t)

	mock.ExpectQuery(bookingByIDSQL).WithArgs(uint64(10)).
		WillReturnRows(walletPaidBookingRow(10, 1, 400000))

	_, err := svc.CreateDeposit(context.Background(), 1, 10)
	assert.ErrorIs(t, err, repository.ErrWrongPaymentFlow)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A wallet booking settled its full price through the ledger, so the
// deposit resolution path must refuse it outright: cancelling it here
// would flip the status without crediting the money back.
func TestResolveOnCancelRejectsWalletPaidBooking(t *testing.T) {
	svc, _, mock := paymentServiceForTest(t)

	mock.ExpectQuery(bookingByIDSQL).WithArgs(uint64(10)).
		WillReturnRows(walletPaidBookingRow(10, 1, 400000))

	forfeited, err := svc.ResolveOnCancel(context.Background(), 1, 10)
	assert.ErrorIs(t, err, repository.ErrWrongPaymentFlow)
	assert.False(t, forfeited)
	// No payment lookup, no refund_status flip, no booking update.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmBookingCompletesPayment(t *testing.T) {
	svc, _, mock := paymentServiceForTest(t)

	// Deposit whose success callback never arrived.
	mock.ExpectQuery(paymentByIDSQL).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows(paymentColNames).
			AddRow(5, 10, 500000, 150000, model.PayMethodGateway,
				model.DepositPending, model.RefundNone, "ORDER_10_x", nil, nil, testTime()))

	mock.ExpectBegin()
	mock.ExpectQuery(bookingLockSQL).WithArgs(uint64(10)).
		WillReturnRows(pendingBookingRow(10, 1, 500000))
	mock.ExpectExec(confirmBookSQL).
		WithArgs(model.BookingConfirmed, uint64(10), model.BookingPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectExec(markCompletedSQL).
		WithArgs(model.DepositCompleted, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.ConfirmBooking(context.Background(), 5)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmBookingFailedTransitionLeavesPayment(t *testing.T) {
	svc, _, mock := paymentServiceForTest(t)

	mock.ExpectQuery(paymentByIDSQL).WithArgs(uint64(5)).
		WillReturnRows(completedPaymentRow(5, 10))

	confirmedAt := testTime()
	mock.ExpectBegin()
	mock.ExpectQuery(bookingLockSQL).WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows(bookingColNames).
			AddRow(10, 1, 2, "2025-06-20", "08:00:00", "10:00:00",
				500000, 0, model.BookingConfirmed, model.PayMethodGateway, model.PaymentStatusPending,
				testTime(), confirmedAt))
	mock.ExpectRollback()

	err := svc.ConfirmBooking(context.Background(), 5)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}
