package response

import (
	"time"

	"servicehub/internal/data/entity"
)

type AddressResponse struct {
	Line       string `json:"line"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

type BookingResponse struct {
	ID              string               `json:"id"`
	CustomerID      string               `json:"customer_id"`
	WorkerID        *string              `json:"worker_id,omitempty"`
	ServiceType     string               `json:"service_type"`
	ServiceTitle    string               `json:"service_title"`
	Status          entity.BookingStatus `json:"status"`
	Amount          float64              `json:"amount"`
	WorkerPayment   float64              `json:"worker_payment"`
	ScheduledDate   string               `json:"scheduled_date"`
	ScheduledTime   string               `json:"scheduled_time"`
	Address         AddressResponse      `json:"address"`
	PaymentMethod   entity.PaymentMethod `json:"payment_method"`
	PaymentStatus   entity.PaymentStatus `json:"payment_status"`
	PaymentOrderID  *string              `json:"payment_order_id,omitempty"`
	PaymentVerified bool                 `json:"payment_verified"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

type StatusHistoryResponse struct {
	FromStatus entity.BookingStatus `json:"from_status"`
	ToStatus   entity.BookingStatus `json:"to_status"`
	ActorRole  entity.UserRole      `json:"actor_role"`
	CreatedAt  time.Time            `json:"created_at"`
}

type BookingDetailResponse struct {
	BookingResponse
	StatusHistory []StatusHistoryResponse `json:"status_history"`
}

// CompletionResponse reports the OTP issue result. Code is populated only in
// degraded mode, when out-of-band delivery is unavailable.
type CompletionResponse struct {
	Delivered bool   `json:"delivered"`
	Code      string `json:"code,omitempty"`
	ExpiresAt string `json:"expires_at"`
}

func BookingToResponse(b *entity.Booking) BookingResponse {
	var workerID *string
	if b.WorkerID != nil {
		s := b.WorkerID.String()
		workerID = &s
	}

	return BookingResponse{
		ID:              b.ID.String(),
		CustomerID:      b.CustomerID.String(),
		WorkerID:        workerID,
		ServiceType:     b.ServiceType,
		ServiceTitle:    b.ServiceTitle,
		Status:          b.Status,
		Amount:          b.Amount,
		WorkerPayment:   b.WorkerPayment,
		ScheduledDate:   b.ScheduledDate.Format("2006-01-02"),
		ScheduledTime:   b.ScheduledTime,
		Address: AddressResponse{
			Line:       b.Address.Line,
			City:       b.Address.City,
			State:      b.Address.State,
			PostalCode: b.Address.PostalCode,
		},
		PaymentMethod:   b.PaymentMethod,
		PaymentStatus:   b.PaymentStatus,
		PaymentOrderID:  b.PaymentOrderID,
		PaymentVerified: b.PaymentVerified,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func HistoryToResponse(entries []*entity.StatusHistory) []StatusHistoryResponse {
	out := make([]StatusHistoryResponse, len(entries))
	for i, e := range entries {
		out[i] = StatusHistoryResponse{
			FromStatus: e.FromStatus,
			ToStatus:   e.ToStatus,
			ActorRole:  e.ActorRole,
			CreatedAt:  e.CreatedAt,
		}
	}
	return out
}
