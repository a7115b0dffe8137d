package usecase

import (
	"context"
	"fmt"

	"servicehub/internal/data/repository"
	"servicehub/internal/dto/request"
	"servicehub/internal/dto/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WorkerService covers the worker-side surface that is not a status
// transition: availability, assigned jobs, and the earnings ledger.
type WorkerService interface {
	SetAvailability(ctx context.Context, workerUserID uuid.UUID, available bool) error
	ListJobs(ctx context.Context, workerUserID uuid.UUID, req *request.PaginatedRequest) ([]response.BookingResponse, error)
	EarningsLedger(ctx context.Context, workerUserID uuid.UUID, req *request.PaginatedRequest) (*response.EarningsLedgerResponse, error)
}

type workerService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewWorkerService(repo *repository.Repository, log *zap.Logger) WorkerService {
	return &workerService{
		repo: repo,
		log:  log.With(zap.String("service", "worker")),
	}
}

func (s *workerService) SetAvailability(ctx context.Context, workerUserID uuid.UUID, available bool) error {
	if err := s.repo.Worker.SetAvailability(ctx, workerUserID, available); err != nil {
		return err
	}

	s.log.Info("Worker availability updated",
		zap.String("worker_id", workerUserID.String()),
		zap.Bool("available", available),
	)
	return nil
}

func (s *workerService) ListJobs(ctx context.Context, workerUserID uuid.UUID, req *request.PaginatedRequest) ([]response.BookingResponse, error) {
	bookings, err := s.repo.Booking.FindByWorkerID(ctx, workerUserID, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("list worker jobs: %w", err)
	}

	out := make([]response.BookingResponse, len(bookings))
	for i, b := range bookings {
		out[i] = response.BookingToResponse(b)
	}
	return out, nil
}

func (s *workerService) EarningsLedger(ctx context.Context, workerUserID uuid.UUID, req *request.PaginatedRequest) (*response.EarningsLedgerResponse, error) {
	entries, err := s.repo.Earning.FindByWorkerID(ctx, workerUserID, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("list worker earnings: %w", err)
	}

	total, err := s.repo.Earning.TotalByWorkerID(ctx, workerUserID)
	if err != nil {
		return nil, fmt.Errorf("total worker earnings: %w", err)
	}

	resp := &response.EarningsLedgerResponse{
		Total:   total,
		Entries: make([]response.EarningResponse, len(entries)),
	}
	for i, e := range entries {
		resp.Entries[i] = response.EarningToResponse(e)
	}
	return resp, nil
}
