package request

// ReconcilePaymentRequest is the deferred payment path: the client reports a
// completed external payment by order id, with the booking draft to create
// if reconciliation has not happened yet.
type ReconcilePaymentRequest struct {
	OrderID string               `json:"order_id" validate:"required,min=6"`
	Draft   CreateBookingRequest `json:"draft" validate:"required"`
}
