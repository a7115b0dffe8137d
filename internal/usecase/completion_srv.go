package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"servicehub/internal/data/entity"
	"servicehub/internal/data/repository"
	"servicehub/internal/dto/response"
	"servicehub/pkg/mail"
	"servicehub/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// CompletionService runs the customer-confirmation handshake that gates the
// completed transition. The worker requests a code, the customer receives it
// out-of-band, and only the matching code lets the worker complete the job
// and get credited.
type CompletionService interface {
	RequestCompletion(ctx context.Context, bookingID, workerUserID uuid.UUID) (*response.CompletionResponse, error)
	VerifyCompletion(ctx context.Context, bookingID, workerUserID uuid.UUID, code string) (*response.BookingResponse, error)
}

type completionService struct {
	repo        *repository.Repository
	mailer      mail.Mailer
	notifier    NotificationService
	otpLength   int
	otpExpiry   time.Duration
	maxAttempts int
	log         *zap.Logger
}

func NewCompletionService(
	repo *repository.Repository,
	mailer mail.Mailer,
	notifier NotificationService,
	otpLength int,
	otpExpiry time.Duration,
	maxAttempts int,
	log *zap.Logger,
) CompletionService {
	return &completionService{
		repo:        repo,
		mailer:      mailer,
		notifier:    notifier,
		otpLength:   otpLength,
		otpExpiry:   otpExpiry,
		maxAttempts: maxAttempts,
		log:         log.With(zap.String("service", "completion")),
	}
}

// loadInProgress reads the booking and checks the worker may drive its
// completion handshake.
func (s *completionService) loadInProgress(ctx context.Context, bookingID, workerUserID uuid.UUID) (*entity.Booking, error) {
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
	if booking.Status != entity.BookingStatusInProgress {
		return nil, ErrConflict
	}
	return booking, nil
}

// RequestCompletion issues a fresh completion code. A re-request replaces
// the previous code and resets the attempt counter. The raw code is returned
// to the caller only when out-of-band delivery is not configured.
func (s *completionService) RequestCompletion(ctx context.Context, bookingID, workerUserID uuid.UUID) (*response.CompletionResponse, error) {
	booking, err := s.loadInProgress(ctx, bookingID, workerUserID)
	if err != nil {
		return nil, err
	}

	code := utils.GenerateOTP(s.otpLength)
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash completion code: %w", err)
	}

	expiresAt := time.Now().Add(s.otpExpiry)
	ok, err := s.repo.Booking.SetCompletionOTP(ctx, booking.ID, string(hash), expiresAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The booking left in_progress between the read and the write.
		return nil, ErrConflict
	}

	s.log.Info("Completion code issued",
		zap.String("booking_id", booking.ID.String()),
		zap.String("worker_id", workerUserID.String()),
		zap.Time("expires_at", expiresAt),
	)

	resp := &response.CompletionResponse{
		Delivered: true,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	}

	customer, err := s.repo.User.FindByID(ctx, booking.CustomerID)
	if err != nil || customer == nil {
		s.log.Error("Failed to load customer for completion code delivery",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		resp.Delivered = false
		resp.Code = code
		return resp, nil
	}

	err = s.mailer.SendCompletionCode(customer.Email, booking.ServiceTitle, code, int(s.otpExpiry.Minutes()))
	if errors.Is(err, mail.ErrNotConfigured) {
		// Degraded mode: surface the code to the caller so the operator can
		// relay it manually.
		s.log.Warn("Mail not configured, returning completion code inline",
			zap.String("booking_id", booking.ID.String()),
		)
		resp.Delivered = false
		resp.Code = code
		return resp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("deliver completion code: %w", err)
	}

	return resp, nil
}

// VerifyCompletion checks the code and, on a match, commits the completed
// transition and the worker earnings credit in one transaction.
func (s *completionService) VerifyCompletion(ctx context.Context, bookingID, workerUserID uuid.UUID, code string) (*response.BookingResponse, error) {
	booking, err := s.loadInProgress(ctx, bookingID, workerUserID)
	if err != nil {
		return nil, err
	}

	if !booking.HasPendingOTP() {
		return nil, ErrOtpNotRequested
	}

	if time.Now().After(*booking.OTPExpiresAt) {
		return nil, ErrOtpExpired
	}

	if booking.OTPAttempts >= s.maxAttempts {
		return nil, ErrOtpAttemptsExceeded
	}

	if bcrypt.CompareHashAndPassword([]byte(*booking.OTPHash), []byte(code)) != nil {
		attempts, err := s.repo.Booking.IncrementOTPAttempts(ctx, booking.ID)
		if err != nil {
			return nil, err
		}

		s.log.Warn("Completion code mismatch",
			zap.String("booking_id", booking.ID.String()),
			zap.String("worker_id", workerUserID.String()),
			zap.Int("attempts", attempts),
		)

		if attempts >= s.maxAttempts {
			return nil, ErrOtpAttemptsExceeded
		}
		return nil, ErrOtpMismatch
	}

	ok, err := s.repo.Booking.CompleteAndCredit(ctx, booking.ID, workerUserID, booking.WorkerPayment)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	recordTransition(ctx, s.repo, s.log, booking.ID,
		entity.BookingStatusInProgress, entity.BookingStatusCompleted,
		entity.RoleWorker, &workerUserID)

	booking.Status = entity.BookingStatusCompleted
	booking.OTPHash = nil
	booking.OTPExpiresAt = nil
	booking.OTPAttempts = 0

	s.notifier.BookingTransitioned(ctx, booking,
		entity.BookingStatusInProgress, entity.BookingStatusCompleted, entity.RoleWorker)

	s.log.Info("Booking completed and worker credited",
		zap.String("booking_id", booking.ID.String()),
		zap.String("worker_id", workerUserID.String()),
		zap.Float64("amount", booking.WorkerPayment),
	)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}
