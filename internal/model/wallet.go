package model

import "time"

// Transaction types recorded in the wallet_transactions table.  The
// log keeps one row per balance movement plus two informational
// kinds (TOPUP_REJECT carries a zero amount).
const (
	TxTypeTopup       = "TOPUP"
	TxTypeBooking     = "BOOKING"
	TxTypeRefund      = "REFUND"
	TxTypeTopupReject = "TOPUP_REJECT"
	TxTypeCredit      = "CREDIT"
	TxTypeDebit       = "DEBIT"
)

// Wallet holds a user's prepaid balance.  Exactly one wallet exists
// per user; it is created at registration or lazily on first access.
// The balance is mutated only inside a transaction that also appends
// a WalletTransaction row, and never drops below zero.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – owning user (unique).
//	Balance   – current balance in whole currency units (VND).
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Wallet struct {
	ID        uint64    // wallets.id
	UserID    uint64    // wallets.user_id
	Balance   int64     // wallets.balance
	CreatedAt time.Time // wallets.created_at
	UpdatedAt time.Time // wallets.updated_at
}

// WalletTransaction is an immutable audit record of a single balance
// movement.  Rows are append-only: they are never updated or deleted,
// and the sum of all amounts for a user reconciles to the wallet's
// current balance.  Debits are stored with a negative amount.
//
// Fields:
//
//	ID          – primary key identifier.
//	UserID      – owner of the wallet the movement applies to.
//	Amount      – signed amount; negative for debits, zero for TOPUP_REJECT.
//	Type        – one of the TxType* constants.
//	ReferenceID – id of the originating booking or topup, if any.
//	Description – free-text note shown to the user.
//	CreatedAt   – commit time of the movement.
type WalletTransaction struct {
	ID          uint64    // wallet_transactions.id
	UserID      uint64    // wallet_transactions.user_id
	Amount      int64     // wallet_transactions.amount
	Type        string    // wallet_transactions.type
	ReferenceID *uint64   // wallet_transactions.reference_id (nullable)
	Description string    // wallet_transactions.description
	CreatedAt   time.Time // wallet_transactions.created_at
}
