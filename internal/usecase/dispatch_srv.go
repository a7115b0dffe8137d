package usecase

import (
	"context"
	"fmt"
	"time"

	"servicehub/internal/data/entity"
	"servicehub/internal/data/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DispatchService fans a pending booking out to eligible workers and
// escalates to admins when nobody accepts in time. Assignment is logical:
// nothing here changes booking status, only the first accept does.
type DispatchService interface {
	Broadcast(ctx context.Context, booking *entity.Booking)

	// RecordRejection puts the worker on a cool-down for this booking so
	// re-broadcasts skip them. The booking itself is untouched.
	RecordRejection(ctx context.Context, bookingID, workerUserID uuid.UUID) error
}

type dispatchService struct {
	repo           *repository.Repository
	notifier       NotificationService
	redis          *redis.Client
	acceptTimeout  time.Duration
	rejectCooldown time.Duration
	log            *zap.Logger

	// afterFunc is swapped in tests to run escalation synchronously.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

func NewDispatchService(
	repo *repository.Repository,
	notifier NotificationService,
	rdb *redis.Client,
	acceptTimeout, rejectCooldown time.Duration,
	log *zap.Logger,
) DispatchService {
	return &dispatchService{
		repo:           repo,
		notifier:       notifier,
		redis:          rdb,
		acceptTimeout:  acceptTimeout,
		rejectCooldown: rejectCooldown,
		log:            log.With(zap.String("service", "dispatch")),
		afterFunc:      time.AfterFunc,
	}
}

func cooldownKey(bookingID, workerUserID uuid.UUID) string {
	return fmt.Sprintf("dispatch:cooldown:%s:%s", bookingID.String(), workerUserID.String())
}

func (s *dispatchService) Broadcast(ctx context.Context, booking *entity.Booking) {
	s.fanOut(ctx, booking)

	// Escalate after the window if nobody claimed the job. The request
	// context is gone by then, so the timer runs on its own.
	bookingID := booking.ID
	s.afterFunc(s.acceptTimeout, func() {
		s.escalate(context.Background(), bookingID)
	})
}

// fanOut notifies eligible workers not under reject cool-down for this
// booking.
func (s *dispatchService) fanOut(ctx context.Context, booking *entity.Booking) {
	workers, err := s.repo.Worker.FindEligible(ctx, booking.ServiceType)
	if err != nil {
		s.log.Error("Failed to find eligible workers",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("service_type", booking.ServiceType),
		)
		workers = nil
	}

	recipients := make([]uuid.UUID, 0, len(workers))
	for _, w := range workers {
		if s.onCooldown(ctx, booking.ID, w.UserID) {
			continue
		}
		recipients = append(recipients, w.UserID)
	}

	if len(recipients) > 0 {
		s.notifier.NewBookingAvailable(ctx, booking, recipients)
	}

	s.log.Info("Booking broadcast to workers",
		zap.String("booking_id", booking.ID.String()),
		zap.String("service_type", booking.ServiceType),
		zap.Int("workers", len(recipients)),
	)
}

// escalate re-reads the booking at the deadline. A booking accepted in the
// meantime is left alone; an unclaimed one gets a second broadcast wave
// (minus workers who declined the first) and an admin notification for
// manual assignment.
func (s *dispatchService) escalate(ctx context.Context, bookingID uuid.UUID) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		s.log.Error("Failed to re-read booking at escalation deadline",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return
	}
	if booking == nil || booking.Status != entity.BookingStatusPending {
		return
	}

	s.fanOut(ctx, booking)

	admins, err := s.repo.User.FindAdmins(ctx)
	if err != nil {
		s.log.Error("Failed to find admins for escalation",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return
	}

	adminIDs := make([]uuid.UUID, len(admins))
	for i, a := range admins {
		adminIDs[i] = a.ID
	}

	s.notifier.AssignmentTimedOut(ctx, booking, adminIDs)

	s.log.Warn("Booking unclaimed past accept window",
		zap.String("booking_id", bookingID.String()),
		zap.Int("admins_notified", len(adminIDs)),
	)
}

func (s *dispatchService) onCooldown(ctx context.Context, bookingID, workerUserID uuid.UUID) bool {
	if s.redis == nil {
		return false
	}

	n, err := s.redis.Exists(ctx, cooldownKey(bookingID, workerUserID)).Result()
	if err != nil {
		// Cool-down is an optimization; fail open and re-notify.
		return false
	}
	return n > 0
}

func (s *dispatchService) RecordRejection(ctx context.Context, bookingID, workerUserID uuid.UUID) error {
	if s.redis == nil {
		return nil
	}

	err := s.redis.Set(ctx, cooldownKey(bookingID, workerUserID), "1", s.rejectCooldown).Err()
	if err != nil {
		return fmt.Errorf("set rejection cool-down for booking %s worker %s: %w",
			bookingID.String(), workerUserID.String(), err)
	}

	s.log.Info("Rejection cool-down recorded",
		zap.String("booking_id", bookingID.String()),
		zap.String("worker_id", workerUserID.String()),
	)
	return nil
}
