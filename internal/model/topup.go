package model

import "time"

// Topup request states.  APPROVED and REJECTED are terminal and
// immutable; the wallet credit happens exactly once, on the
// transition to APPROVED.
const (
	TopupPending  = "PENDING"
	TopupApproved = "APPROVED"
	TopupRejected = "REJECTED"
)

// TopupRequest is a user's request to load money onto their wallet,
// waiting for an admin to approve or reject it.
type TopupRequest struct {
	ID         uint64     // wallet_topups.id
	UserID     uint64     // wallet_topups.user_id
	Amount     int64      // wallet_topups.amount
	Note       string     // wallet_topups.note
	Status     string     // wallet_topups.status
	CreatedAt  time.Time  // wallet_topups.created_at
	ApprovedAt *time.Time // wallet_topups.approved_at (nullable)
}
