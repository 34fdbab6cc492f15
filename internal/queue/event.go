// Package queue defines booking event payloads exchanged over the
// message broker, the publisher that writes them and the background
// consumer that records them.
package queue

// Booking event names carried in BookingEvent.Event.
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is published whenever a booking changes state. It
// carries enough information for downstream consumers to log or
// notify without querying the primary database.
type BookingEvent struct {
	Event       string `json:"event"`
	BookingID   uint64 `json:"booking_id"`
	UserID      uint64 `json:"user_id"`
	FieldID     uint64 `json:"field_id"`
	BookingDate string `json:"booking_date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	TotalPrice  int64  `json:"total_price"`
	Status      string `json:"status"`
	Refunded    bool   `json:"refunded"`
	OccurredAt  string `json:"occurred_at"`
}
