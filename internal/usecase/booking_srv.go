package usecase

import (
	"context"
	"fmt"
	"time"

	"servicehub/internal/data/entity"
	"servicehub/internal/data/repository"
	"servicehub/internal/dto/request"
	"servicehub/internal/dto/response"
	"servicehub/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingService is the state machine owning every status write. All edges
// go through a compare-and-set against the status the caller last observed;
// a stale precondition is retried once with the freshly read status and then
// surfaced as ErrConflict.
type BookingService interface {
	Create(ctx context.Context, customerID uuid.UUID, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	CreateFromReconciliation(ctx context.Context, customerID uuid.UUID, draft *request.CreateBookingRequest, orderID string, verified bool) (*response.BookingResponse, error)

	Accept(ctx context.Context, bookingID, workerUserID uuid.UUID, expected entity.BookingStatus) (*response.BookingResponse, error)
	Reject(ctx context.Context, bookingID, workerUserID uuid.UUID) error
	Start(ctx context.Context, bookingID, workerUserID uuid.UUID) (*response.BookingResponse, error)
	Cancel(ctx context.Context, bookingID, actorID uuid.UUID, actorRole entity.UserRole) (*response.BookingResponse, error)
	Assign(ctx context.Context, bookingID, workerUserID, adminID uuid.UUID) (*response.BookingResponse, error)

	GetByID(ctx context.Context, bookingID, actorID uuid.UUID, actorRole entity.UserRole) (*response.BookingDetailResponse, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
}

type bookingService struct {
	repo       *repository.Repository
	notifier   NotificationService
	dispatcher DispatchService
	commission float64 // percent withheld from the worker payout
	log        *zap.Logger
}

func NewBookingService(
	repo *repository.Repository,
	notifier NotificationService,
	dispatcher DispatchService,
	commissionPct float64,
	log *zap.Logger,
) BookingService {
	return &bookingService{
		repo:       repo,
		notifier:   notifier,
		dispatcher: dispatcher,
		commission: commissionPct,
		log:        log.With(zap.String("service", "booking")),
	}
}

// recordTransition appends the audit entry for a committed transition.
// History failures are logged, not propagated: the status change already
// committed and the store's commit order remains authoritative.
func recordTransition(
	ctx context.Context,
	repo *repository.Repository,
	log *zap.Logger,
	bookingID uuid.UUID,
	from, to entity.BookingStatus,
	actorRole entity.UserRole,
	actorID *uuid.UUID,
) {
	err := repo.StatusHistory.Append(ctx, &entity.StatusHistory{
		BookingID:  bookingID,
		FromStatus: from,
		ToStatus:   to,
		ActorRole:  actorRole,
		ActorID:    actorID,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		log.Error("Failed to append status history",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("to", string(to)),
		)
	}
}

func (s *bookingService) buildBooking(customerID uuid.UUID, req *request.CreateBookingRequest) (*entity.Booking, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	scheduledDate, err := time.Parse("2006-01-02", req.ScheduledDate)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduled date %s: %w", req.ScheduledDate, err)
	}
	if _, err := time.Parse("15:04", req.ScheduledTime); err != nil {
		return nil, fmt.Errorf("invalid scheduled time %s: %w", req.ScheduledTime, err)
	}
	if scheduledDate.Before(time.Now().Add(-24 * time.Hour)) {
		return nil, fmt.Errorf("cannot book for a past date")
	}

	// Worker payout is frozen at creation; the commission never moves after
	// the customer agreed to the amount.
	workerPayment := req.Amount * (100 - s.commission) / 100

	now := time.Now()
	return &entity.Booking{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		CustomerID:    customerID,
		ServiceType:   req.ServiceType,
		ServiceTitle:  req.ServiceTitle,
		Status:        entity.BookingStatusPending,
		Amount:        req.Amount,
		WorkerPayment: workerPayment,
		ScheduledDate: scheduledDate,
		ScheduledTime: req.ScheduledTime,
		Address: entity.Address{
			Line:       req.Address.Line,
			City:       req.Address.City,
			State:      req.Address.State,
			PostalCode: req.Address.PostalCode,
		},
		PaymentMethod: entity.PaymentMethod(req.PaymentMethod),
		PaymentStatus: entity.PaymentStatusPending,
	}, nil
}

func (s *bookingService) finishCreate(ctx context.Context, booking *entity.Booking) {
	recordTransition(ctx, s.repo, s.log, booking.ID, entity.BookingStatusNone, entity.BookingStatusPending, entity.RoleCustomer, &booking.CustomerID)

	// Fan the pending booking out to eligible workers. Assignment is a
	// logical broadcast; the booking status does not change here.
	s.dispatcher.Broadcast(ctx, booking)

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("customer_id", booking.CustomerID.String()),
		zap.String("service_type", booking.ServiceType),
		zap.Float64("amount", booking.Amount),
		zap.String("payment_method", string(booking.PaymentMethod)),
	)
}

func (s *bookingService) Create(ctx context.Context, customerID uuid.UUID, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	booking, err := s.buildBooking(customerID, req)
	if err != nil {
		return nil, err
	}

	if booking.PaymentMethod == entity.PaymentMethodOnline {
		// Synchronous online confirmation happens before this call; the
		// deferred path goes through payment reconciliation instead.
		orderID := utils.GenerateOrderID()
		booking.PaymentOrderID = &orderID
		booking.PaymentStatus = entity.PaymentStatusPaid
	}

	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.finishCreate(ctx, booking)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) CreateFromReconciliation(ctx context.Context, customerID uuid.UUID, draft *request.CreateBookingRequest, orderID string, verified bool) (*response.BookingResponse, error) {
	booking, err := s.buildBooking(customerID, draft)
	if err != nil {
		return nil, err
	}

	booking.PaymentMethod = entity.PaymentMethodOnline
	booking.PaymentStatus = entity.PaymentStatusPaid
	booking.PaymentOrderID = &orderID
	booking.PaymentVerified = verified

	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.finishCreate(ctx, booking)
	s.notifier.PaymentReceived(ctx, booking)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

// transition drives one edge of the state graph. expected, when set, is the
// status the caller last observed and is used as the first compare-and-set
// precondition. On a stale precondition the booking is re-read once; if the
// edge is still legal the write is retried, otherwise the caller gets
// ErrConflict.
func (s *bookingService) transition(
	ctx context.Context,
	booking *entity.Booking,
	action entity.BookingAction,
	actorRole entity.UserRole,
	actorID *uuid.UUID,
	claimWorker *uuid.UUID,
	expected entity.BookingStatus,
) (*entity.Booking, error) {
	from := booking.Status
	if expected != "" {
		from = expected
	}

	to, ok := entity.NextStatus(from, action)
	if !ok {
		if booking.Status.IsTerminal() || expected != "" {
			return nil, ErrConflict
		}
		s.log.Error("Invalid transition requested",
			zap.String("booking_id", booking.ID.String()),
			zap.String("status", string(booking.Status)),
			zap.String("action", string(action)),
			zap.String("actor_role", string(actorRole)),
		)
		return nil, ErrInvalidTransition
	}

	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.repo.Booking.UpdateStatusCAS(ctx, booking.ID, from, to, claimWorker)
		if err != nil {
			return nil, err
		}
		if ok {
			recordTransition(ctx, s.repo, s.log, booking.ID, from, to, actorRole, actorID)

			updated, err := s.repo.Booking.FindByID(ctx, booking.ID)
			if err != nil || updated == nil {
				// The write committed; fall back to the local copy.
				updated = booking
				updated.Status = to
				if claimWorker != nil {
					updated.WorkerID = claimWorker
				}
			}

			s.notifier.BookingTransitioned(ctx, updated, from, to, actorRole)
			return updated, nil
		}

		// Stale precondition: re-read once and retry only if the edge is
		// still legal from the fresh status.
		fresh, err := s.repo.Booking.FindByID(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		if fresh == nil {
			return nil, ErrNotFound
		}

		from = fresh.Status
		if to, ok = entity.NextStatus(from, action); !ok {
			return nil, ErrConflict
		}
		// A concurrent assign may have claimed the booking for someone else.
		// Only the assigned worker may take the worker_assigned -> accepted
		// edge, so a racer holding a stale pending read stops here.
		if action == entity.ActionAccept && from == entity.BookingStatusWorkerAssigned &&
			(fresh.WorkerID == nil || claimWorker == nil || *fresh.WorkerID != *claimWorker) {
			return nil, ErrConflict
		}
		booking = fresh
	}

	return nil, ErrConflict
}

func (s *bookingService) Accept(ctx context.Context, bookingID, workerUserID uuid.UUID, expected entity.BookingStatus) (*response.BookingResponse, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrNotFound
	}

	worker, err := s.repo.Worker.FindByUserID(ctx, workerUserID)
	if err != nil {
		return nil, err
	}
	if worker == nil || !worker.IsVerified {
		return nil, ErrForbidden
	}

	// A force-assigned booking may only be accepted by the assigned worker.
	if booking.Status == entity.BookingStatusWorkerAssigned &&
		(booking.WorkerID == nil || *booking.WorkerID != workerUserID) {
		return nil, ErrForbidden
	}

	updated, err := s.transition(ctx, booking, entity.ActionAccept, entity.RoleWorker, &workerUserID, &workerUserID, expected)
	if err != nil {
		if err == ErrConflict {
			s.log.Info("Accept lost the assignment race",
				zap.String("booking_id", bookingID.String()),
				zap.String("worker_id", workerUserID.String()),
			)
		}
		return nil, err
	}

	resp := response.BookingToResponse(updated)
	return &resp, nil
}

// Reject by the force-assigned worker moves the booking to rejected. A
// reject from a broadcast candidate leaves the booking untouched and only
// records a cool-down so the worker is not re-notified.
func (s *bookingService) Reject(ctx context.Context, bookingID, workerUserID uuid.UUID) error {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking == nil {
		return ErrNotFound
	}

	if booking.Status == entity.BookingStatusWorkerAssigned &&
		booking.WorkerID != nil && *booking.WorkerID == workerUserID {
		_, err := s.transition(ctx, booking, entity.ActionReject, entity.RoleWorker, &workerUserID, nil, "")
		return err
	}

	// The cool-down branch is for candidates declining an open broadcast.
	// A booking assigned to someone else, or already past pending, gives
	// this worker nothing to decline.
	if booking.Status != entity.BookingStatusPending {
		if booking.Status == entity.BookingStatusWorkerAssigned {
			return ErrForbidden
		}
		return ErrConflict
	}

	if err := s.dispatcher.RecordRejection(ctx, bookingID, workerUserID); err != nil {
		s.log.Warn("Failed to record rejection cool-down",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("worker_id", workerUserID.String()),
		)
	}

	return nil
}

func (s *bookingService) Start(ctx context.Context, bookingID, workerUserID uuid.UUID) (*response.BookingResponse, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrNotFound
	}

	if booking.WorkerID == nil || *booking.WorkerID != workerUserID {
		return nil, ErrForbidden
	}

	updated, err := s.transition(ctx, booking, entity.ActionStart, entity.RoleWorker, &workerUserID, nil, "")
	if err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(updated)
	return &resp, nil
}

func (s *bookingService) Cancel(ctx context.Context, bookingID, actorID uuid.UUID, actorRole entity.UserRole) (*response.BookingResponse, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrNotFound
	}

	switch actorRole {
	case entity.RoleCustomer:
		if booking.CustomerID != actorID {
			return nil, ErrForbidden
		}
		// Customers may only cancel before work starts.
		if booking.Status == entity.BookingStatusInProgress {
			return nil, ErrForbidden
		}
	case entity.RoleWorker:
		if booking.WorkerID == nil || *booking.WorkerID != actorID {
			return nil, ErrForbidden
		}
		if booking.Status != entity.BookingStatusAccepted && booking.Status != entity.BookingStatusInProgress {
			return nil, ErrForbidden
		}
	case entity.RoleAdmin:
		// Admins may cancel from any non-terminal status.
	default:
		return nil, ErrForbidden
	}

	updated, err := s.transition(ctx, booking, entity.ActionCancel, actorRole, &actorID, nil, "")
	if err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(updated)
	return &resp, nil
}

// Assign is the admin escalation path after no worker accepted the
// broadcast within the timeout.
func (s *bookingService) Assign(ctx context.Context, bookingID, workerUserID, adminID uuid.UUID) (*response.BookingResponse, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrNotFound
	}

	worker, err := s.repo.Worker.FindByUserID(ctx, workerUserID)
	if err != nil {
		return nil, err
	}
	if worker == nil || !worker.IsVerified {
		return nil, fmt.Errorf("worker %s is not a verified worker", workerUserID.String())
	}

	updated, err := s.transition(ctx, booking, entity.ActionAssign, entity.RoleAdmin, &adminID, &workerUserID, "")
	if err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(updated)
	return &resp, nil
}

func (s *bookingService) GetByID(ctx context.Context, bookingID, actorID uuid.UUID, actorRole entity.UserRole) (*response.BookingDetailResponse, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrNotFound
	}

	// The record is visible to its customer, its assigned worker, admins,
	// and - while it is still up for grabs - any worker deciding on it.
	switch actorRole {
	case entity.RoleAdmin:
	case entity.RoleCustomer:
		if booking.CustomerID != actorID {
			return nil, ErrForbidden
		}
	case entity.RoleWorker:
		assigned := booking.WorkerID != nil && *booking.WorkerID == actorID
		open := booking.Status == entity.BookingStatusPending
		if !assigned && !open {
			return nil, ErrForbidden
		}
	default:
		return nil, ErrForbidden
	}

	history, err := s.repo.StatusHistory.FindByBookingID(ctx, bookingID)
	if err != nil {
		s.log.Error("Failed to load status history",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		history = nil
	}

	return &response.BookingDetailResponse{
		BookingResponse: response.BookingToResponse(booking),
		StatusHistory:   response.HistoryToResponse(history),
	}, nil
}

func (s *bookingService) ListForCustomer(ctx context.Context, customerID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	bookings, err := s.repo.Booking.FindByCustomerID(ctx, customerID, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("list customer bookings: %w", err)
	}

	total, err := s.repo.Booking.CountByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("count customer bookings: %w", err)
	}

	items := make([]response.BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = response.BookingToResponse(b)
	}

	return response.NewPaginatedResponse(items, req.Page, req.PerPage, total), nil
}
