package entity

import (
	"github.com/google/uuid"
)

// Review is a customer rating of a completed booking, one per booking.
type Review struct {
	BaseNoDelete
	BookingID  uuid.UUID `db:"booking_id"`
	CustomerID uuid.UUID `db:"customer_id"`
	WorkerID   uuid.UUID `db:"worker_id"`
	Rating     int       `db:"rating"`
	Comment    *string   `db:"comment"`
}
