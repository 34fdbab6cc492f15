package model

import "time"

// Booking lifecycle states.  Transitions are monotonic:
// pending→confirmed, pending→cancelled, confirmed→cancelled.
// Cancelled is terminal.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Payment status values on a booking row.
const (
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
	PaymentStatusPending  = "pending"
)

// Payment methods.  A booking is paid either up-front from the
// wallet or through a 30% gateway deposit; the two flows never mix
// on one booking.
const (
	PayMethodWallet  = "wallet"
	PayMethodGateway = "momo"
)

// Booking reserves a field for a date and a half-open [start,end)
// time range.  Pending bookings occupy the slot just like confirmed
// ones: the money has already been debited, so a second customer must
// not be able to grab the same range while admin approval is pending.
//
// Fields:
//
//	ID            – primary key identifier.
//	UserID        – user who made the booking.
//	FieldID       – field being reserved.
//	BookingDate   – date of play, "2006-01-02".
//	StartTime     – slot start, "15:04:05" (inclusive).
//	EndTime       – slot end, "15:04:05" (exclusive).
//	TotalPrice    – duration hours × field price per hour.
//	Deposit       – amount held against the booking; equals TotalPrice
//	                in the wallet flow.
//	Status        – pending, confirmed or cancelled.
//	PaymentMethod – wallet or momo.
//	PaymentStatus – paid, refunded or pending.
//	CreatedAt     – creation timestamp (UTC).
//	ConfirmedAt   – when admin confirmed, nil while pending.
type Booking struct {
	ID            uint64     // bookings.id
	UserID        uint64     // bookings.user_id
	FieldID       uint64     // bookings.field_id
	BookingDate   string     // bookings.booking_date
	StartTime     string     // bookings.start_time
	EndTime       string     // bookings.end_time
	TotalPrice    int64      // bookings.total_price
	Deposit       int64      // bookings.deposit
	Status        string     // bookings.status
	PaymentMethod string     // bookings.payment_method
	PaymentStatus string     // bookings.payment_status
	CreatedAt     time.Time  // bookings.created_at
	ConfirmedAt   *time.Time // bookings.confirmed_at (nullable)
}
