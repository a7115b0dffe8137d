package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"servicehub/internal/data/entity"
	"servicehub/internal/data/repository"
	"servicehub/internal/dto/request"
	"servicehub/internal/dto/response"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NotificationService owns fan-out and delivery. Every notification is a
// durable row first; the Redis publish on top is best-effort, so delivery is
// at-least-once and a client may see the same row via push and poll.
type NotificationService interface {
	BookingTransitioned(ctx context.Context, booking *entity.Booking, from, to entity.BookingStatus, actorRole entity.UserRole)
	NewBookingAvailable(ctx context.Context, booking *entity.Booking, workerUserIDs []uuid.UUID)
	AssignmentTimedOut(ctx context.Context, booking *entity.Booking, adminIDs []uuid.UUID)
	PaymentReceived(ctx context.Context, booking *entity.Booking)

	List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, req *request.PaginatedRequest) ([]response.NotificationResponse, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) error

	// Subscribe opens a live stream for the recipient. The channel closes
	// when ctx is done. ErrStreamUnavailable when no pub/sub backend exists.
	Subscribe(ctx context.Context, recipientID uuid.UUID) (<-chan response.NotificationResponse, error)
}

type notificationService struct {
	repo  *repository.Repository
	redis *redis.Client
	log   *zap.Logger
}

func NewNotificationService(repo *repository.Repository, rdb *redis.Client, log *zap.Logger) NotificationService {
	return &notificationService{
		repo:  repo,
		redis: rdb,
		log:   log.With(zap.String("service", "notification")),
	}
}

func notifyChannel(recipientID uuid.UUID) string {
	return "notify:" + recipientID.String()
}

func newNotification(recipientID uuid.UUID, role entity.UserRole, typ entity.NotificationType, message string, bookingID uuid.UUID) *entity.Notification {
	id := bookingID
	return &entity.Notification{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: time.Now(),
		},
		RecipientID:   recipientID,
		RecipientRole: role,
		Type:          typ,
		Message:       message,
		BookingID:     &id,
	}
}

// deliver persists the batch and then publishes each row. A persistence
// failure is logged and swallowed: notifications never block a transition
// that already committed.
func (s *notificationService) deliver(ctx context.Context, ns []*entity.Notification) {
	if len(ns) == 0 {
		return
	}

	if err := s.repo.Notification.CreateBatch(ctx, ns); err != nil {
		s.log.Error("Failed to persist notifications",
			zap.Error(err),
			zap.Int("count", len(ns)),
		)
		return
	}

	if s.redis == nil {
		return
	}

	for _, n := range ns {
		payload, err := json.Marshal(response.NotificationToResponse(n))
		if err != nil {
			continue
		}
		if err := s.redis.Publish(ctx, notifyChannel(n.RecipientID), payload).Err(); err != nil {
			s.log.Warn("Failed to publish notification",
				zap.Error(err),
				zap.String("recipient_id", n.RecipientID.String()),
			)
		}
	}
}

func (s *notificationService) BookingTransitioned(ctx context.Context, booking *entity.Booking, from, to entity.BookingStatus, actorRole entity.UserRole) {
	var ns []*entity.Notification

	switch to {
	case entity.BookingStatusWorkerAssigned:
		if booking.WorkerID != nil {
			ns = append(ns, newNotification(*booking.WorkerID, entity.RoleWorker, entity.NotifyWorkerAssigned,
				fmt.Sprintf("You have been assigned to %s on %s.", booking.ServiceTitle, booking.ScheduledDate.Format("2006-01-02")),
				booking.ID))
		}
	case entity.BookingStatusAccepted:
		ns = append(ns, newNotification(booking.CustomerID, entity.RoleCustomer, entity.NotifyBookingAccepted,
			fmt.Sprintf("A worker accepted your booking %s.", booking.ServiceTitle),
			booking.ID))
	case entity.BookingStatusRejected:
		ns = append(ns, newNotification(booking.CustomerID, entity.RoleCustomer, entity.NotifyBookingRejected,
			fmt.Sprintf("The assigned worker declined your booking %s. We are finding another worker.", booking.ServiceTitle),
			booking.ID))
	case entity.BookingStatusInProgress:
		ns = append(ns, newNotification(booking.CustomerID, entity.RoleCustomer, entity.NotifyBookingStarted,
			fmt.Sprintf("Work has started on your booking %s.", booking.ServiceTitle),
			booking.ID))
	case entity.BookingStatusCompleted:
		ns = append(ns, newNotification(booking.CustomerID, entity.RoleCustomer, entity.NotifyBookingCompleted,
			fmt.Sprintf("Your booking %s is completed.", booking.ServiceTitle),
			booking.ID))
		if booking.WorkerID != nil {
			ns = append(ns, newNotification(*booking.WorkerID, entity.RoleWorker, entity.NotifyBookingCompleted,
				fmt.Sprintf("Booking %s completed. %.2f credited to your earnings.", booking.ServiceTitle, booking.WorkerPayment),
				booking.ID))
		}
	case entity.BookingStatusCancelled:
		// Tell everyone except whoever cancelled.
		if actorRole != entity.RoleCustomer {
			ns = append(ns, newNotification(booking.CustomerID, entity.RoleCustomer, entity.NotifyBookingCancelled,
				fmt.Sprintf("Your booking %s was cancelled.", booking.ServiceTitle),
				booking.ID))
		}
		if booking.WorkerID != nil && actorRole != entity.RoleWorker {
			ns = append(ns, newNotification(*booking.WorkerID, entity.RoleWorker, entity.NotifyBookingCancelled,
				fmt.Sprintf("Booking %s was cancelled.", booking.ServiceTitle),
				booking.ID))
		}
	}

	s.deliver(ctx, ns)
}

func (s *notificationService) NewBookingAvailable(ctx context.Context, booking *entity.Booking, workerUserIDs []uuid.UUID) {
	ns := make([]*entity.Notification, 0, len(workerUserIDs))
	message := fmt.Sprintf("New %s job available: %s on %s at %s.",
		booking.ServiceType, booking.ServiceTitle,
		booking.ScheduledDate.Format("2006-01-02"), booking.ScheduledTime,
	)

	for _, workerID := range workerUserIDs {
		ns = append(ns, newNotification(workerID, entity.RoleWorker, entity.NotifyNewBookingAvailable, message, booking.ID))
	}

	s.deliver(ctx, ns)
}

func (s *notificationService) AssignmentTimedOut(ctx context.Context, booking *entity.Booking, adminIDs []uuid.UUID) {
	ns := make([]*entity.Notification, 0, len(adminIDs))
	message := fmt.Sprintf("No worker accepted booking %s (%s). Manual assignment needed.",
		booking.ServiceTitle, booking.ServiceType,
	)

	for _, adminID := range adminIDs {
		ns = append(ns, newNotification(adminID, entity.RoleAdmin, entity.NotifyAssignmentTimeout, message, booking.ID))
	}

	s.deliver(ctx, ns)
}

func (s *notificationService) PaymentReceived(ctx context.Context, booking *entity.Booking) {
	orderID := ""
	if booking.PaymentOrderID != nil {
		orderID = *booking.PaymentOrderID
	}

	s.deliver(ctx, []*entity.Notification{
		newNotification(booking.CustomerID, entity.RoleCustomer, entity.NotifyPaymentReceived,
			fmt.Sprintf("Payment received for booking %s (order %s).", booking.ServiceTitle, orderID),
			booking.ID),
	})
}

func (s *notificationService) List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, req *request.PaginatedRequest) ([]response.NotificationResponse, error) {
	ns, err := s.repo.Notification.FindByRecipient(ctx, recipientID, unreadOnly, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	out := make([]response.NotificationResponse, len(ns))
	for i, n := range ns {
		out[i] = response.NotificationToResponse(n)
	}
	return out, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	return s.repo.Notification.MarkRead(ctx, id, recipientID)
}

func (s *notificationService) Subscribe(ctx context.Context, recipientID uuid.UUID) (<-chan response.NotificationResponse, error) {
	if s.redis == nil {
		return nil, ErrStreamUnavailable
	}

	sub := s.redis.Subscribe(ctx, notifyChannel(recipientID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe for %s: %w", recipientID.String(), err)
	}

	out := make(chan response.NotificationResponse, 8)
	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var n response.NotificationResponse
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					s.log.Warn("Dropped malformed notification payload", zap.Error(err))
					continue
				}
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
