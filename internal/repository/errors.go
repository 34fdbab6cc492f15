// Package repository defines the error taxonomy shared across
// repositories and the services built on top of them. These sentinel
// values let higher layers distinguish failure scenarios without
// string matching: a handler maps ErrInsufficientBalance to a 400
// while the sweeper treats ErrAlreadyCancelled from a racing
// cancellation as a benign no-op.
package repository

import "errors"

// ErrInvalidAmount is returned when a credit, debit or topup is
// attempted with a non-positive amount. Rejected before any write.
var ErrInvalidAmount = errors.New("amount must be positive")

// ErrInsufficientBalance is returned when a debit exceeds the wallet's
// current balance. The check runs under the wallet row lock, so a
// rejected debit has no partial effect.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrWalletNotFound is returned when no wallet row exists for a user.
// Callers that can tolerate a missing wallet ensure one first.
var ErrWalletNotFound = errors.New("wallet not found")

// ErrBookingNotFound is returned when a referenced booking does not exist.
var ErrBookingNotFound = errors.New("booking not found")

// ErrFieldNotFound is returned when a referenced field does not exist.
var ErrFieldNotFound = errors.New("field not found")

// ErrFieldUnavailable is returned when the field exists but is not
// bookable (e.g. under maintenance).
var ErrFieldUnavailable = errors.New("field unavailable")

// ErrSlotTaken is returned when the requested time range overlaps a
// pending or confirmed booking on the same field and date.
var ErrSlotTaken = errors.New("time slot already booked")

// ErrInvalidDuration is returned when a booking span falls outside the
// configured minimum/maximum hours.
var ErrInvalidDuration = errors.New("booking duration out of bounds")

// ErrOutsideOpenHours is returned when a requested slot starts before
// the venue opens or ends after it closes.
var ErrOutsideOpenHours = errors.New("slot outside operating hours")

// ErrInvalidTransition is returned when a state-machine transition is
// not permitted from the booking's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrAlreadyCancelled is returned when cancelling a booking that is
// already cancelled. Benign for the sweeper, a hard error for users.
var ErrAlreadyCancelled = errors.New("booking already cancelled")

// ErrAlreadyConfirmed is returned when an operation requires a booking
// that has not yet been confirmed by an admin.
var ErrAlreadyConfirmed = errors.New("booking already confirmed")

// ErrAlreadyProcessed is returned when acting on a topup or deposit
// whose terminal state has already been decided.
var ErrAlreadyProcessed = errors.New("already processed")

// ErrWrongPaymentFlow is returned when a deposit operation is applied
// to a booking that was not created for gateway payment. Wallet-paid
// bookings settle through the ledger, never through the deposit
// tracker.
var ErrWrongPaymentFlow = errors.New("operation not valid for this payment method")

// ErrPaymentNotFound is returned when a referenced payment does not
// exist. Webhook callers report it instead of failing hard, since the
// gateway may retry with stale order ids.
var ErrPaymentNotFound = errors.New("payment not found")

// ErrTopupNotFound is returned when a referenced topup request does
// not exist.
var ErrTopupNotFound = errors.New("topup not found")
