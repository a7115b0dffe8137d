package usecase

import (
	"time"

	"servicehub/internal/data/repository"
	"servicehub/pkg/mail"
	"servicehub/pkg/payment"
	"servicehub/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Service struct {
	Booking      BookingService
	Dispatch     DispatchService
	Completion   CompletionService
	Notification NotificationService
	Payment      PaymentService
	Review       ReviewService
	Worker       WorkerService
}

func NewService(
	repo *repository.Repository,
	config *utils.Config,
	rdb *redis.Client,
	mailer mail.Mailer,
	gateway payment.Gateway,
	log *zap.Logger,
) *Service {
	notification := NewNotificationService(repo, rdb, log)
	dispatch := NewDispatchService(
		repo,
		notification,
		rdb,
		time.Duration(config.Dispatch.AcceptTimeoutMinutes)*time.Minute,
		time.Duration(config.Dispatch.RejectCooldownMinutes)*time.Minute,
		log,
	)
	booking := NewBookingService(repo, notification, dispatch, config.Payment.CommissionPct, log)
	completion := NewCompletionService(
		repo,
		mailer,
		notification,
		config.OTP.Length,
		time.Duration(config.OTP.ExpiryMinutes)*time.Minute,
		config.OTP.MaxAttempts,
		log,
	)

	return &Service{
		Booking:      booking,
		Dispatch:     dispatch,
		Completion:   completion,
		Notification: notification,
		Payment:      NewPaymentService(repo, gateway, booking, log),
		Review:       NewReviewService(repo, log),
		Worker:       NewWorkerService(repo, log),
	}
}
