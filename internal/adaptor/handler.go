package adaptor

import (
	"errors"
	"net/http"
	"strings"

	"servicehub/internal/usecase"
	"servicehub/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Booking      *BookingHandler
	Worker       *WorkerHandler
	Notification *NotificationHandler
	Payment      *PaymentHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Booking:      NewBookingHandler(service.Booking, service.Review, log),
		Worker:       NewWorkerHandler(service.Booking, service.Completion, service.Worker, service.Review, log),
		Notification: NewNotificationHandler(service.Notification, log),
		Payment:      NewPaymentHandler(service.Payment, log),
	}
}

// writeServiceError maps service sentinels onto the response envelope.
// Unknown errors become a 500 without leaking internals.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	switch {
	case errors.Is(err, usecase.ErrNotFound):
		log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, usecase.ErrForbidden):
		log.Warn(operation+" failed - forbidden", zap.Error(err))
		utils.ResponseForbidden(w, err.Error())

	case errors.Is(err, usecase.ErrConflict):
		log.Warn(operation+" failed - state conflict", zap.Error(err))
		utils.ResponseConflict(w, "Job no longer available")

	case errors.Is(err, usecase.ErrInvalidTransition):
		log.Warn(operation+" failed - invalid transition", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrOtpNotRequested),
		errors.Is(err, usecase.ErrOtpExpired),
		errors.Is(err, usecase.ErrOtpMismatch),
		errors.Is(err, usecase.ErrOtpAttemptsExceeded):
		log.Warn(operation+" failed - completion code rejected", zap.Error(err))
		utils.ResponseUnprocessable(w, err.Error())

	case errors.Is(err, usecase.ErrAlreadyReviewed):
		log.Warn(operation+" failed - duplicate review", zap.Error(err))
		utils.ResponseConflict(w, err.Error())

	case errors.Is(err, usecase.ErrStreamUnavailable):
		log.Warn(operation + " failed - stream unavailable")
		utils.ResponseJSON(w, http.StatusServiceUnavailable, false, err.Error(), nil, nil)

	default:
		switch {
		case strings.Contains(err.Error(), "not found"):
			log.Warn(operation+" failed - not found", zap.Error(err))
			utils.ResponseNotFound(w, err.Error())
		case strings.Contains(err.Error(), "validation failed"), strings.Contains(err.Error(), "invalid"):
			log.Warn(operation+" rejected", zap.Error(err))
			utils.ResponseBadRequest(w, err.Error(), nil)
		default:
			log.Error("Failed to "+operation, zap.Error(err))
			utils.ResponseInternalError(w, "Internal server error")
		}
	}
}
