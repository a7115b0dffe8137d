package response

import (
	"time"

	"servicehub/internal/data/entity"
)

type EarningResponse struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

type EarningsLedgerResponse struct {
	Total   float64           `json:"total"`
	Entries []EarningResponse `json:"entries"`
}

func EarningToResponse(e *entity.Earning) EarningResponse {
	return EarningResponse{
		ID:        e.ID.String(),
		BookingID: e.BookingID.String(),
		Amount:    e.Amount,
		CreatedAt: e.CreatedAt,
	}
}
