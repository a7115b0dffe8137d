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

type ReviewService interface {
	Create(ctx context.Context, bookingID, customerID uuid.UUID, req *request.ReviewRequest) (*response.ReviewResponse, error)
	ListForWorker(ctx context.Context, workerUserID uuid.UUID, req *request.PaginatedRequest) ([]response.ReviewResponse, error)
}

type reviewService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewReviewService(repo *repository.Repository, log *zap.Logger) ReviewService {
	return &reviewService{
		repo: repo,
		log:  log.With(zap.String("service", "review")),
	}
}

// Create records one review per completed booking and folds the rating into
// the worker's running average.
func (s *reviewService) Create(ctx context.Context, bookingID, customerID uuid.UUID, req *request.ReviewRequest) (*response.ReviewResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrNotFound
	}
	if booking.CustomerID != customerID {
		return nil, ErrForbidden
	}
	if booking.Status != entity.BookingStatusCompleted || booking.WorkerID == nil {
		return nil, ErrConflict
	}

	now := time.Now()
	review := &entity.Review{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID:  bookingID,
		CustomerID: customerID,
		WorkerID:   *booking.WorkerID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}

	if err := s.repo.Review.Create(ctx, review); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}

	if err := s.repo.Worker.AddRating(ctx, *booking.WorkerID, req.Rating); err != nil {
		// The review row exists; the denormalized average is best-effort.
		s.log.Error("Failed to fold rating into worker average",
			zap.Error(err),
			zap.String("worker_id", booking.WorkerID.String()),
		)
	}

	s.log.Info("Review created",
		zap.String("booking_id", bookingID.String()),
		zap.String("worker_id", booking.WorkerID.String()),
		zap.Int("rating", req.Rating),
	)

	resp := response.ReviewToResponse(review)
	return &resp, nil
}

func (s *reviewService) ListForWorker(ctx context.Context, workerUserID uuid.UUID, req *request.PaginatedRequest) ([]response.ReviewResponse, error) {
	reviews, err := s.repo.Review.FindByWorkerID(ctx, workerUserID, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("list worker reviews: %w", err)
	}

	out := make([]response.ReviewResponse, len(reviews))
	for i, r := range reviews {
		out[i] = response.ReviewToResponse(r)
	}
	return out, nil
}
