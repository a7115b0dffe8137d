package entity

import (
	"github.com/google/uuid"
)

// Worker is the field-worker profile used for assignment eligibility.
// Services holds the service types the worker takes jobs for.
type Worker struct {
	BaseNoDelete
	UserID      uuid.UUID `db:"user_id"`
	Services    []string  `db:"services"`
	IsAvailable bool      `db:"is_available"`
	IsVerified  bool      `db:"is_verified"`
	Rating      float64   `db:"rating"`
	RatingCount int       `db:"rating_count"`
}
