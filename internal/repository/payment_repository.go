package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/quanghuy/fieldbook/internal/model"
)

// PaymentRepo provides data access to the payments table used by the
// gateway deposit flow. refund_status transitions are guarded in SQL:
// once a deposit has been refunded or forfeited the row can never
// change again.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentCols = `id, booking_id, amount, deposit_amount, payment_method,
    status, refund_status, transaction_id, deposit_paid_at, payment_date, created_at`

func scanPayment(row interface{ Scan(...interface{}) error }) (*model.Payment, error) {
	var (
		p       model.Payment
		paidAt  sql.NullTime
		payDate sql.NullTime
	)
	err := row.Scan(&p.ID, &p.BookingID, &p.Amount, &p.DepositAmount, &p.PaymentMethod,
		&p.Status, &p.RefundStatus, &p.TransactionID, &paidAt, &payDate, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		t := paidAt.Time
		p.DepositPaidAt = &t
	}
	if payDate.Valid {
		t := payDate.Time
		p.PaymentDate = &t
	}
	return &p, nil
}

// Create inserts a pending payment row for a booking deposit.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO payments
         (booking_id, amount, deposit_amount, payment_method, status, refund_status, transaction_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP())`,
		p.BookingID, p.Amount, p.DepositAmount, p.PaymentMethod,
		model.DepositPending, model.RefundNone, p.TransactionID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.Status = model.DepositPending
	p.RefundStatus = model.RefundNone
	return nil
}

// GetByID fetches a payment by id.
func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (*model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByBookingID fetches the payment held against a booking. One
// payment row exists per booking in the deposit flow.
func (r *PaymentRepo) GetByBookingID(ctx context.Context, bookingID uint64) (*model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE booking_id = ? LIMIT 1`, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByTransactionID looks a payment up by the order id issued to the
// gateway. This is the webhook's only lookup key.
func (r *PaymentRepo) GetByTransactionID(ctx context.Context, txnID string) (*model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE transaction_id = ? LIMIT 1`, txnID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// MarkDepositPaid records a successful gateway callback: status
// becomes completed and the paid timestamp is stamped. The status
// guard makes repeated webhook deliveries no-ops.
func (r *PaymentRepo) MarkDepositPaid(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payments
         SET status = ?, deposit_paid_at = UTC_TIMESTAMP(), payment_date = UTC_TIMESTAMP()
         WHERE id = ? AND status = ?`,
		model.DepositCompleted, id, model.DepositPending)
	return err
}

// MarkCompleted forces the payment to completed during an admin
// confirmation, regardless of whether the webhook arrived.
func (r *PaymentRepo) MarkCompleted(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = ?, payment_date = UTC_TIMESTAMP() WHERE id = ?`,
		model.DepositCompleted, id)
	return err
}

// setRefundStatus flips refund_status exactly once. The WHERE guard
// on 'none' enforces permanence; zero affected rows means the deposit
// was already resolved.
func (r *PaymentRepo) setRefundStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET refund_status = ? WHERE id = ? AND refund_status = ?`,
		status, id, model.RefundNone)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyProcessed
	}
	return nil
}

// Refund marks the deposit as returned to the payer. Status-only
// bookkeeping: the deposit flow never moves wallet balance.
func (r *PaymentRepo) Refund(ctx context.Context, id uint64) error {
	return r.setRefundStatus(ctx, id, model.RefundRefunded)
}

// Forfeit permanently keeps the deposit after a confirmed booking was
// cancelled by its owner.
func (r *PaymentRepo) Forfeit(ctx context.Context, id uint64) error {
	return r.setRefundStatus(ctx, id, model.RefundForfeited)
}

// ListByUser returns the payments belonging to a user's bookings,
// newest first.
func (r *PaymentRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Payment, error) {
	const q = `SELECT p.id, p.booking_id, p.amount, p.deposit_amount, p.payment_method,
               p.status, p.refund_status, p.transaction_id, p.deposit_paid_at, p.payment_date, p.created_at
               FROM payments p JOIN bookings b ON p.booking_id = b.id
               WHERE b.user_id = ?
               ORDER BY p.created_at DESC`
	return r.queryPayments(ctx, q, userID)
}

// ListAll returns every payment, newest first, for admin views.
func (r *PaymentRepo) ListAll(ctx context.Context) ([]model.Payment, error) {
	return r.queryPayments(ctx,
		`SELECT `+paymentCols+` FROM payments ORDER BY created_at DESC`)
}

func (r *PaymentRepo) queryPayments(ctx context.Context, q string, args ...interface{}) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
