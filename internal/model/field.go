package model

import "time"

// Field status values.  Only available fields accept bookings.
const (
	FieldAvailable   = "available"
	FieldMaintenance = "maintenance"
)

// Field is a bookable pitch.  PricePerHour is in whole currency
// units; booking prices are computed from it at creation time.
type Field struct {
	ID           uint64    // fields.id
	Name         string    // fields.name
	Type         string    // fields.type (5v5, 7v7, 11v11, futsal)
	Location     string    // fields.location
	PricePerHour int64     // fields.price_per_hour
	Status       string    // fields.status
	CreatedAt    time.Time // fields.created_at
	UpdatedAt    time.Time // fields.updated_at
}
