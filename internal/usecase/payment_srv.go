package usecase

import (
	"context"
	"errors"
	"fmt"

	"servicehub/internal/data/repository"
	"servicehub/internal/dto/request"
	"servicehub/internal/dto/response"
	"servicehub/pkg/payment"
	"servicehub/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService reconciles deferred online payments. The client reports a
// gateway order as paid; the unique index on payment_order_id makes the
// operation idempotent under retries and concurrent duplicates.
type PaymentService interface {
	// Reconcile returns the booking tied to the order, creating it from the
	// draft if this is the first report. created is false when an earlier
	// reconciliation already won.
	Reconcile(ctx context.Context, customerID uuid.UUID, req *request.ReconcilePaymentRequest) (*response.BookingResponse, bool, error)
}

type paymentService struct {
	repo     *repository.Repository
	gateway  payment.Gateway
	bookings BookingService
	log      *zap.Logger
}

func NewPaymentService(repo *repository.Repository, gateway payment.Gateway, bookings BookingService, log *zap.Logger) PaymentService {
	return &paymentService{
		repo:     repo,
		gateway:  gateway,
		bookings: bookings,
		log:      log.With(zap.String("service", "payment")),
	}
}

func (s *paymentService) Reconcile(ctx context.Context, customerID uuid.UUID, req *request.ReconcilePaymentRequest) (*response.BookingResponse, bool, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, false, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	existing, err := s.repo.Booking.FindByPaymentOrderID(ctx, req.OrderID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if existing.CustomerID != customerID {
			return nil, false, ErrForbidden
		}
		resp := response.BookingToResponse(existing)
		return &resp, false, nil
	}

	verified := false
	paid, err := s.gateway.IsOrderPaid(req.OrderID)
	switch {
	case errors.Is(err, payment.ErrNotConfigured):
		// No gateway credentials: record the client signal but flag the
		// booking unverified for later audit.
		s.log.Warn("Gateway not configured, recording unverified payment",
			zap.String("order_id", req.OrderID),
		)
	case err != nil:
		s.log.Error("Gateway verification failed, recording unverified payment",
			zap.Error(err),
			zap.String("order_id", req.OrderID),
		)
	case !paid:
		return nil, false, fmt.Errorf("order %s is not paid at the gateway", req.OrderID)
	default:
		verified = true
	}

	booking, err := s.bookings.CreateFromReconciliation(ctx, customerID, &req.Draft, req.OrderID, verified)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			// Lost a concurrent reconciliation race; the winner's row is the
			// canonical one.
			winner, ferr := s.repo.Booking.FindByPaymentOrderID(ctx, req.OrderID)
			if ferr != nil {
				return nil, false, ferr
			}
			if winner == nil {
				return nil, false, fmt.Errorf("reconcile order %s: %w", req.OrderID, err)
			}
			if winner.CustomerID != customerID {
				return nil, false, ErrForbidden
			}
			resp := response.BookingToResponse(winner)
			return &resp, false, nil
		}
		return nil, false, err
	}

	s.log.Info("Payment reconciled into new booking",
		zap.String("order_id", req.OrderID),
		zap.String("booking_id", booking.ID),
		zap.Bool("verified", verified),
	)

	return booking, true, nil
}
