package model

import "time"

// Payment status over the gateway deposit lifecycle.
const (
	DepositPending   = "pending"
	DepositCompleted = "completed"
)

// Refund status of a deposit.  Set at most once and permanent: once
// refunded or forfeited a deposit never changes state again.
const (
	RefundNone      = "none"
	RefundRefunded  = "refunded"
	RefundForfeited = "forfeited"
)

// Payment records a 30% deposit collected through the external
// payment gateway for a single booking.  One payment row exists per
// booking in this flow.  Unlike the wallet flow, refunds here are
// bookkeeping only – no wallet balance moves.
//
// Fields:
//
//	ID            – primary key identifier.
//	BookingID     – booking the deposit is held against.
//	Amount        – full booking price.
//	DepositAmount – round(Amount × 0.30), the sum actually collected.
//	PaymentMethod – gateway name (momo).
//	Status        – pending until the gateway callback, then completed.
//	RefundStatus  – none, refunded or forfeited.
//	TransactionID – order id issued to the gateway; webhook lookups key on it.
//	DepositPaidAt – when the gateway reported success.
//	PaymentDate   – last gateway/admin action timestamp.
//	CreatedAt     – creation timestamp.
type Payment struct {
	ID            uint64     // payments.id
	BookingID     uint64     // payments.booking_id
	Amount        int64      // payments.amount
	DepositAmount int64      // payments.deposit_amount
	PaymentMethod string     // payments.payment_method
	Status        string     // payments.status
	RefundStatus  string     // payments.refund_status
	TransactionID string     // payments.transaction_id
	DepositPaidAt *time.Time // payments.deposit_paid_at (nullable)
	PaymentDate   *time.Time // payments.payment_date (nullable)
	CreatedAt     time.Time  // payments.created_at
}
