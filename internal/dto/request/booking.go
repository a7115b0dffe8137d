package request

type AddressRequest struct {
	Line       string `json:"line" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required,min=4,max=10"`
}

type CreateBookingRequest struct {
	ServiceType   string         `json:"service_type" validate:"required"`
	ServiceTitle  string         `json:"service_title" validate:"required"`
	ScheduledDate string         `json:"scheduled_date" validate:"required"` // 2006-01-02
	ScheduledTime string         `json:"scheduled_time" validate:"required"` // 15:04
	Address       AddressRequest `json:"address" validate:"required"`
	Amount        float64        `json:"amount" validate:"required,gt=0"`
	PaymentMethod string         `json:"payment_method" validate:"required,oneof=online cod"`
}

type AcceptBookingRequest struct {
	// ExpectedStatus is the status the worker last observed; the
	// compare-and-set uses it as precondition. Optional: defaults to the
	// freshly read status for clients that do not track it.
	ExpectedStatus string `json:"expected_status" validate:"omitempty,oneof=pending worker_assigned"`
}

type AssignWorkerRequest struct {
	WorkerID string `json:"worker_id" validate:"required,uuid4"`
}

type VerifyCompletionRequest struct {
	Code string `json:"code" validate:"required,numeric,min=4,max=8"`
}

type ReviewRequest struct {
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=1000"`
}

type AvailabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}
