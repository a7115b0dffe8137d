package entity

import (
	"github.com/google/uuid"
)

// Earning is one append-only ledger entry, written in the same transaction
// as the in_progress -> completed status change.
type Earning struct {
	BaseSimple
	WorkerID  uuid.UUID `db:"worker_id"`
	BookingID uuid.UUID `db:"booking_id"`
	Amount    float64   `db:"amount"`
}
