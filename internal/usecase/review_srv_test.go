package usecase

import (
	"context"
	"errors"
	"testing"

	"servicehub/internal/data/entity"
	"servicehub/internal/dto/request"

	"github.com/google/uuid"
)

func seedCompleted(s *memStore) (*entity.Booking, uuid.UUID) {
	workerID := seedWorker(s, "plumbing")
	booking := seedBooking(s, entity.BookingStatusCompleted)
	s.mu.Lock()
	s.bookings[booking.ID].WorkerID = &workerID
	s.mu.Unlock()
	return booking, workerID
}

func TestReviewCompletedBookingOnce(t *testing.T) {
	s := newMemStore()
	svc := NewReviewService(s.repo(), testLogger())
	booking, workerID := seedCompleted(s)

	review, err := svc.Create(context.Background(), booking.ID, booking.CustomerID, &request.ReviewRequest{Rating: 4})
	if err != nil {
		t.Fatalf("create review failed: %v", err)
	}
	if review.Rating != 4 {
		t.Fatalf("rating = %d, want 4", review.Rating)
	}

	_, err = svc.Create(context.Background(), booking.ID, booking.CustomerID, &request.ReviewRequest{Rating: 5})
	if !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("second review: err = %v, want ErrAlreadyReviewed", err)
	}

	worker, _ := s.repo().Worker.FindByUserID(context.Background(), workerID)
	if worker.RatingCount != 1 || worker.Rating != 4 {
		t.Fatalf("worker rating = %.1f/%d, want 4.0/1", worker.Rating, worker.RatingCount)
	}
}

func TestReviewGuards(t *testing.T) {
	s := newMemStore()
	svc := NewReviewService(s.repo(), testLogger())

	// Not completed yet.
	inProgress := seedBooking(s, entity.BookingStatusInProgress)
	if _, err := svc.Create(context.Background(), inProgress.ID, inProgress.CustomerID, &request.ReviewRequest{Rating: 3}); !errors.Is(err, ErrConflict) {
		t.Fatalf("review of in_progress: err = %v, want ErrConflict", err)
	}

	// Wrong customer.
	booking, _ := seedCompleted(s)
	if _, err := svc.Create(context.Background(), booking.ID, uuid.New(), &request.ReviewRequest{Rating: 3}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("review by stranger: err = %v, want ErrForbidden", err)
	}

	// Out-of-range rating.
	if _, err := svc.Create(context.Background(), booking.ID, booking.CustomerID, &request.ReviewRequest{Rating: 9}); err == nil {
		t.Fatal("review with rating 9 accepted")
	}

	// Unknown booking.
	if _, err := svc.Create(context.Background(), uuid.New(), uuid.New(), &request.ReviewRequest{Rating: 3}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("review of unknown booking: err = %v, want ErrNotFound", err)
	}
}

func TestWorkerRatingRunningAverage(t *testing.T) {
	s := newMemStore()
	svc := NewReviewService(s.repo(), testLogger())

	workerID := seedWorker(s, "plumbing")
	for _, rating := range []int{5, 3} {
		booking := seedBooking(s, entity.BookingStatusCompleted)
		s.mu.Lock()
		s.bookings[booking.ID].WorkerID = &workerID
		s.mu.Unlock()

		if _, err := svc.Create(context.Background(), booking.ID, booking.CustomerID, &request.ReviewRequest{Rating: rating}); err != nil {
			t.Fatalf("review with rating %d failed: %v", rating, err)
		}
	}

	worker, _ := s.repo().Worker.FindByUserID(context.Background(), workerID)
	if worker.RatingCount != 2 || worker.Rating != 4 {
		t.Fatalf("worker rating = %.1f/%d, want 4.0/2", worker.Rating, worker.RatingCount)
	}
}
