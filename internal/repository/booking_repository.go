package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/quanghuy/fieldbook/internal/model"
)

// BookingRepo provides CRUD operations for bookings. State
// transitions and the slot-conflict predicate live here as ...Tx
// methods; the booking service composes them with wallet operations
// inside one transaction so that money and slot occupancy can never
// diverge. booking_date and the slot times are stored as DATE/TIME
// columns and surfaced as "2006-01-02" / "15:04:05" strings.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying sql.DB for multi-repository transactions.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingCols = `id, user_id, field_id,
    DATE_FORMAT(booking_date, '%Y-%m-%d'),
    TIME_FORMAT(start_time, '%H:%i:%s'),
    TIME_FORMAT(end_time, '%H:%i:%s'),
    total_price, deposit, status, payment_method, payment_status, created_at, confirmed_at`

func scanBooking(row interface{ Scan(...interface{}) error }) (*model.Booking, error) {
	var (
		b           model.Booking
		confirmedAt sql.NullTime
	)
	err := row.Scan(&b.ID, &b.UserID, &b.FieldID, &b.BookingDate, &b.StartTime, &b.EndTime,
		&b.TotalPrice, &b.Deposit, &b.Status, &b.PaymentMethod, &b.PaymentStatus,
		&b.CreatedAt, &confirmedAt)
	if err != nil {
		return nil, err
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		b.ConfirmedAt = &t
	}
	return &b, nil
}

// CreateTx inserts a booking within the caller's transaction and
// populates the generated ID plus DB-default fields on the given
// struct. The caller must commit or roll back.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings
        (user_id, field_id, booking_date, start_time, end_time,
         total_price, deposit, status, payment_method, payment_status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP())`
	res, err := tx.ExecContext(ctx, q,
		b.UserID, b.FieldID, b.BookingDate, b.StartTime, b.EndTime,
		b.TotalPrice, b.Deposit, b.Status, b.PaymentMethod, b.PaymentStatus)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	got, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingCols+` FROM bookings WHERE id = ?`, b.ID))
	if err != nil {
		return err
	}
	*b = *got
	return nil
}

// GetByID fetches a booking by id. Returns ErrBookingNotFound when
// no row exists.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingCols+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetByIDForUpdateTx fetches a booking under SELECT ... FOR UPDATE.
// The row lock is held until the transaction ends, serializing a
// user cancellation, an admin confirmation and the expiry sweep
// racing on the same booking.
func (r *BookingRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingCols+` FROM bookings WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// slotTaken runs the single conflict predicate of the system: two
// ranges collide when existing.start < requested.end AND existing.end
// > requested.start (half-open intervals), scoped to the same field
// and date and to status pending or confirmed. Pending rows count
// because their money has already been debited.
func slotTaken(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}, fieldID uint64, date, start, end string, excludeID *uint64) (bool, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE field_id = ? AND booking_date = ?
                AND status IN (?, ?)
                AND start_time < ? AND end_time > ?`
	args := []interface{}{fieldID, date, model.BookingPending, model.BookingConfirmed, end, start}
	if excludeID != nil {
		query += ` AND id != ?`
		args = append(args, *excludeID)
	}
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// SlotTaken reports whether the requested range conflicts with an
// existing non-cancelled booking. excludeID lets a reschedule ignore
// its own row.
func (r *BookingRepo) SlotTaken(ctx context.Context, fieldID uint64, date, start, end string, excludeID *uint64) (bool, error) {
	return slotTaken(ctx, r.db, fieldID, date, start, end, excludeID)
}

// SlotTakenTx is SlotTaken evaluated inside the caller's transaction,
// so the check and the subsequent insert commit as one atomic unit.
func (r *BookingRepo) SlotTakenTx(ctx context.Context, tx *sql.Tx, fieldID uint64, date, start, end string, excludeID *uint64) (bool, error) {
	return slotTaken(ctx, tx, fieldID, date, start, end, excludeID)
}

// MarkConfirmedTx flips a pending booking to confirmed and stamps
// confirmed_at. The status guard in the WHERE clause makes the
// transition monotonic; zero rows affected means the booking was not
// pending anymore.
func (r *BookingRepo) MarkConfirmedTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, confirmed_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`,
		model.BookingConfirmed, id, model.BookingPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// MarkCancelledTx flips the booking to cancelled without touching
// payment_status. Used by the deposit flow, where refunds are
// tracked on the payments row instead of the wallet.
func (r *BookingRepo) MarkCancelledTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ?`, model.BookingCancelled, id)
	return err
}

// MarkCancelledRefundedTx flips the booking to cancelled and its
// payment_status to refunded in one statement. Runs after the wallet
// credit inside the same transaction.
func (r *BookingRepo) MarkCancelledRefundedTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, payment_status = ? WHERE id = ?`,
		model.BookingCancelled, model.PaymentStatusRefunded, id)
	return err
}

// ExpiredPendingForUpdateTx selects every pending booking created
// before the cutoff, locking the rows for the remainder of the
// transaction so a concurrent cancellation or confirmation cannot
// race the sweep.
func (r *BookingRepo) ExpiredPendingForUpdateTx(ctx context.Context, tx *sql.Tx, cutoff time.Time) ([]model.Booking, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+bookingCols+` FROM bookings
         WHERE status = ? AND created_at <= ?
         FOR UPDATE`,
		model.BookingPending, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// BookingWithField joins a booking with display fields of its pitch
// for listing endpoints.
type BookingWithField struct {
	model.Booking
	FieldName    string `json:"field_name"`
	FieldType    string `json:"field_type"`
	Location     string `json:"location"`
	PricePerHour int64  `json:"price_per_hour"`
}

const bookingJoinCols = `b.id, b.user_id, b.field_id,
    DATE_FORMAT(b.booking_date, '%Y-%m-%d'),
    TIME_FORMAT(b.start_time, '%H:%i:%s'),
    TIME_FORMAT(b.end_time, '%H:%i:%s'),
    b.total_price, b.deposit, b.status, b.payment_method, b.payment_status, b.created_at, b.confirmed_at,
    f.name, f.type, f.location, f.price_per_hour`

func (r *BookingRepo) listJoined(ctx context.Context, where string, args []interface{}, limit, offset int) ([]BookingWithField, error) {
	q := `SELECT ` + bookingJoinCols + `
          FROM bookings b JOIN fields f ON b.field_id = f.id ` + where + `
          ORDER BY b.created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BookingWithField
	for rows.Next() {
		var (
			bf          BookingWithField
			confirmedAt sql.NullTime
		)
		err := rows.Scan(&bf.ID, &bf.UserID, &bf.FieldID, &bf.BookingDate, &bf.StartTime, &bf.EndTime,
			&bf.TotalPrice, &bf.Deposit, &bf.Status, &bf.PaymentMethod, &bf.PaymentStatus,
			&bf.CreatedAt, &confirmedAt,
			&bf.FieldName, &bf.FieldType, &bf.Location, &bf.PricePerHour)
		if err != nil {
			return nil, err
		}
		if confirmedAt.Valid {
			t := confirmedAt.Time
			bf.ConfirmedAt = &t
		}
		out = append(out, bf)
	}
	return out, rows.Err()
}

// ListByUser returns a page of the user's bookings, newest first,
// along with the total row count for pagination.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64, page, limit int) ([]BookingWithField, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	items, err := r.listJoined(ctx, `WHERE b.user_id = ?`, []interface{}{userID}, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListAll returns a page of all bookings for admin views.
func (r *BookingRepo) ListAll(ctx context.Context, page, limit int) ([]BookingWithField, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	items, err := r.listJoined(ctx, ``, nil, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Stats aggregates booking counts by status plus revenue from
// confirmed bookings, for the admin dashboard.
type Stats struct {
	TotalBookings     int   `json:"total_bookings"`
	ConfirmedBookings int   `json:"confirmed_bookings"`
	PendingBookings   int   `json:"pending_bookings"`
	CancelledBookings int   `json:"cancelled_bookings"`
	TotalRevenue      int64 `json:"total_revenue"`
}

// Statistics computes all-time booking statistics in a single query.
func (r *BookingRepo) Statistics(ctx context.Context) (Stats, error) {
	const q = `SELECT
        COUNT(*),
        COALESCE(SUM(status = ?), 0),
        COALESCE(SUM(status = ?), 0),
        COALESCE(SUM(status = ?), 0),
        COALESCE(SUM(CASE WHEN status = ? THEN total_price ELSE 0 END), 0)
        FROM bookings`
	var s Stats
	err := r.db.QueryRowContext(ctx, q,
		model.BookingConfirmed, model.BookingPending, model.BookingCancelled, model.BookingConfirmed).
		Scan(&s.TotalBookings, &s.ConfirmedBookings, &s.PendingBookings, &s.CancelledBookings, &s.TotalRevenue)
	return s, err
}
