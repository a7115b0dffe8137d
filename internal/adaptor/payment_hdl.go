package adaptor

import (
	"encoding/json"
	"net/http"

	"servicehub/internal/dto/request"
	"servicehub/internal/usecase"
	"servicehub/pkg/utils"

	"go.uber.org/zap"
)

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// Reconcile handles POST /api/payments/reconcile (customer). Idempotent:
// replaying the same order id returns the already-created booking with 200
// instead of 201.
func (h *PaymentHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.ReconcilePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	booking, created, err := h.service.Reconcile(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "reconcile payment")
		return
	}

	if created {
		utils.ResponseCreated(w, "success", booking)
		return
	}
	utils.ResponseSuccess(w, "success", booking)
}
