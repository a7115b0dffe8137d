package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"servicehub/internal/data/entity"
	"servicehub/internal/data/repository"
	"servicehub/internal/dto/request"

	"github.com/google/uuid"
)

func seedWorker(s *memStore, serviceType string) uuid.UUID {
	userID := uuid.New()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.workers[userID] = &entity.Worker{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New()},
		UserID:       userID,
		Services:     []string{serviceType},
		IsAvailable:  true,
		IsVerified:   true,
	}
	return userID
}

func seedBooking(s *memStore, status entity.BookingStatus) *entity.Booking {
	now := time.Now()
	b := &entity.Booking{
		BaseNoDelete:  entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		CustomerID:    uuid.New(),
		ServiceType:   "plumbing",
		ServiceTitle:  "Fix kitchen sink",
		Status:        status,
		Amount:        500,
		WorkerPayment: 450,
		ScheduledDate: now.Add(24 * time.Hour),
		ScheduledTime: "10:00",
		PaymentMethod: entity.PaymentMethodCOD,
		PaymentStatus: entity.PaymentStatusPending,
	}
	s.mu.Lock()
	s.bookings[b.ID] = b
	s.mu.Unlock()
	return b
}

func newTestBookingService(s *memStore) (BookingService, *stubNotifier, *stubDispatcher) {
	notifier := &stubNotifier{}
	dispatcher := &stubDispatcher{}
	svc := NewBookingService(s.repo(), notifier, dispatcher, 10, testLogger())
	return svc, notifier, dispatcher
}

func validCreateRequest() *request.CreateBookingRequest {
	return &request.CreateBookingRequest{
		ServiceType:   "plumbing",
		ServiceTitle:  "Fix kitchen sink",
		ScheduledDate: time.Now().Add(48 * time.Hour).Format("2006-01-02"),
		ScheduledTime: "10:00",
		Address: request.AddressRequest{
			Line:       "12 Main Road",
			City:       "Pune",
			State:      "MH",
			PostalCode: "411001",
		},
		Amount:        500,
		PaymentMethod: "cod",
	}
}

func TestCreateBookingStartsPendingAndBroadcasts(t *testing.T) {
	s := newMemStore()
	svc, _, dispatcher := newTestBookingService(s)

	customerID := uuid.New()
	resp, err := svc.Create(context.Background(), customerID, validCreateRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if resp.Status != entity.BookingStatusPending {
		t.Fatalf("new booking status = %s, want pending", resp.Status)
	}
	if resp.WorkerPayment != 450 {
		t.Fatalf("worker payment = %.2f, want 450 (10%% commission on 500)", resp.WorkerPayment)
	}
	if dispatcher.broadcasts != 1 {
		t.Fatalf("dispatcher broadcasts = %d, want 1", dispatcher.broadcasts)
	}

	if len(s.history) != 1 || s.history[0].FromStatus != entity.BookingStatusNone || s.history[0].ToStatus != entity.BookingStatusPending {
		t.Fatalf("creation history entry missing or wrong: %+v", s.history)
	}
}

func TestCreateBookingRejectsPastDate(t *testing.T) {
	s := newMemStore()
	svc, _, _ := newTestBookingService(s)

	req := validCreateRequest()
	req.ScheduledDate = "2020-01-01"

	if _, err := svc.Create(context.Background(), uuid.New(), req); err == nil {
		t.Fatal("Create accepted a past date")
	}
}

// Exactly one of N racing workers claims a pending booking; the others get
// the conflict error.
func TestAcceptSingleWinnerUnderRace(t *testing.T) {
	s := newMemStore()
	svc, _, _ := newTestBookingService(s)
	booking := seedBooking(s, entity.BookingStatusPending)

	const racers = 10
	workerIDs := make([]uuid.UUID, racers)
	for i := range workerIDs {
		workerIDs[i] = seedWorker(s, "plumbing")
	}

	var wg sync.WaitGroup
	results := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Accept(context.Background(), booking.ID, workerIDs[i], entity.BookingStatusPending)
		}(i)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected accept error: %v", err)
		}
	}

	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}
	if conflicts != racers-1 {
		t.Fatalf("conflicts = %d, want %d", conflicts, racers-1)
	}

	final, _ := s.repo().Booking.FindByID(context.Background(), booking.ID)
	if final.Status != entity.BookingStatusAccepted {
		t.Fatalf("final status = %s, want accepted", final.Status)
	}
	if final.WorkerID == nil {
		t.Fatal("winning worker not recorded on booking")
	}
}

func TestAcceptRequiresVerifiedWorker(t *testing.T) {
	s := newMemStore()
	svc, _, _ := newTestBookingService(s)
	booking := seedBooking(s, entity.BookingStatusPending)

	// No worker row at all.
	if _, err := svc.Accept(context.Background(), booking.ID, uuid.New(), ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("accept by non-worker: err = %v, want ErrForbidden", err)
	}

	// Unverified worker row.
	userID := uuid.New()
	s.mu.Lock()
	s.workers[userID] = &entity.Worker{UserID: userID, Services: []string{"plumbing"}, IsAvailable: true}
	s.mu.Unlock()

	if _, err := svc.Accept(context.Background(), booking.ID, userID, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("accept by unverified worker: err = %v, want ErrForbidden", err)
	}
}

// A stale precondition is retried once against the fresh status when the
// edge is still legal: accepting with expected=pending succeeds even after
// an admin force-assigned the booking to the same worker.
func TestAcceptRetriesOnceWithFreshStatus(t *testing.T) {
	s := newMemStore()
	svc, _, _ := newTestBookingService(s)
	workerID := seedWorker(s, "plumbing")

	booking := seedBooking(s, entity.BookingStatusWorkerAssigned)
	s.mu.Lock()
	s.bookings[booking.ID].WorkerID = &workerID
	s.mu.Unlock()

	resp, err := svc.Accept(context.Background(), booking.ID, workerID, entity.BookingStatusPending)
	if err != nil {
		t.Fatalf("accept with stale precondition failed: %v", err)
	}
	if resp.Status != entity.BookingStatusAccepted {
		t.Fatalf("status = %s, want accepted", resp.Status)
	}
}

// assignDuringCAS force-assigns the booking to a rival worker just before the
// caller's first status update lands, so the compare-and-set loses and the
// service goes through its re-read path.
type assignDuringCAS struct {
	repository.BookingRepository
	mu    sync.Mutex
	rival uuid.UUID
	fired bool
}

func (r *assignDuringCAS) UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus, workerID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	first := !r.fired
	r.fired = true
	r.mu.Unlock()

	if first && from == entity.BookingStatusPending {
		rival := r.rival
		if _, err := r.BookingRepository.UpdateStatusCAS(ctx, id, entity.BookingStatusPending, entity.BookingStatusWorkerAssigned, &rival); err != nil {
			return false, err
		}
	}
	return r.BookingRepository.UpdateStatusCAS(ctx, id, from, to, workerID)
}

// A worker whose accept loses to a concurrent admin assign must not claim the
// booking on retry: the worker_assigned -> accepted edge belongs to the
// assigned worker alone.
func TestAcceptRetryCannotClaimForceAssignedBooking(t *testing.T) {
	s := newMemStore()
	assigned := seedWorker(s, "plumbing")
	racer := seedWorker(s, "plumbing")

	repo := s.repo()
	repo.Booking = &assignDuringCAS{BookingRepository: repo.Booking, rival: assigned}
	svc := NewBookingService(repo, &stubNotifier{}, &stubDispatcher{}, 10, testLogger())

	booking := seedBooking(s, entity.BookingStatusPending)

	if _, err := svc.Accept(context.Background(), booking.ID, racer, entity.BookingStatusPending); !errors.Is(err, ErrConflict) {
		t.Fatalf("racing accept after concurrent assign: err = %v, want ErrConflict", err)
	}

	mid, _ := repo.Booking.FindByID(context.Background(), booking.ID)
	if mid.Status != entity.BookingStatusWorkerAssigned {
		t.Fatalf("status = %s, want worker_assigned", mid.Status)
	}
	if mid.WorkerID == nil || *mid.WorkerID != assigned {
		t.Fatalf("worker on booking = %v, want the assigned worker %s", mid.WorkerID, assigned)
	}

	// The assigned worker's own accept still goes through.
	resp, err := svc.Accept(context.Background(), booking.ID, assigned, "")
	if err != nil {
		t.Fatalf("accept by assigned worker failed: %v", err)
	}
	if resp.Status != entity.BookingStatusAccepted {
		t.Fatalf("status = %s, want accepted", resp.Status)
	}
}

func TestAcceptForceAssignedOnlyByAssignedWorker(t *testing.T) {
	s := newMemStore()
	svc, _, _ := newTestBookingService(s)
	assigned := seedWorker(s, "plumbing")
	other := seedWorker(s, "plumbing")

	booking := seedBooking(s, entity.BookingStatusWorkerAssigned)
	s.mu.Lock()
	s.bookings[booking.ID].WorkerID = &assigned
	s.mu.Unlock()

	if _, err := svc.Accept(context.Background(), booking.ID, other, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("accept by other worker: err = %v, want ErrForbidden", err)
	}

	if _, err := svc.Accept(context.Background(), booking.ID, assigned, ""); err != nil {
		t.Fatalf("accept by assigned worker failed: %v", err)
	}
}

func TestTerminalStatusesAreFinal(t *testing.T) {
	s := newMemStore()
	svc, _, _ := newTestBookingService(s)

	for _, status := range []entity.BookingStatus{
		entity.BookingStatusCompleted,
		entity.BookingStatusCancelled,
		entity.BookingStatusRejected,
	} {
		booking := seedBooking(s, status)

		_, err := svc.Cancel(context.Background(), booking.ID, uuid.New(), entity.RoleAdmin)
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("cancel from %s: err = %v, want ErrConflict", status, err)
		}

		final, _ := s.repo().Booking.FindByID(context.Background(), booking.ID)
		if final.Status != status {
			t.Fatalf("terminal status %s changed to %s", status, final.Status)
		}
	}
}

func TestStartRequiresAssignedWorker(t *testing.T) {
	s := newMemStore()
	svc, _, _ := newTestBookingService(s)
	workerID := seedWorker(s, "plumbing")

	booking := seedBooking(s, entity.BookingStatusAccepted)
	s.mu.Lock()
	s.bookings[booking.ID].WorkerID = &workerID
	s.mu.Unlock()

	if _, err := svc.Start(context.Background(), booking.ID, uuid.New()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("start by other worker: err = %v, want ErrForbidden", err)
	}

	resp, err := svc.Start(context.Background(), booking.ID, workerID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if resp.Status != entity.BookingStatusInProgress {
		t.Fatalf("status = %s, want in_progress", resp.Status)
	}
}

func TestCustomerCannotCancelInProgress(t *testing.T) {
	s := newMemStore()
	svc, _, _ := newTestBookingService(s)

	booking := seedBooking(s, entity.BookingStatusInProgress)

	_, err := svc.Cancel(context.Background(), booking.ID, booking.CustomerID, entity.RoleCustomer)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("customer cancel of in_progress: err = %v, want ErrForbidden", err)
	}

	// Admin still can.
	if _, err := svc.Cancel(context.Background(), booking.ID, uuid.New(), entity.RoleAdmin); err != nil {
		t.Fatalf("admin cancel failed: %v", err)
	}
}

func TestCancelClearsPendingCompletionCode(t *testing.T) {
	s := newMemStore()
	svc, _, _ := newTestBookingService(s)

	booking := seedBooking(s, entity.BookingStatusInProgress)
	hash := "somehash"
	expires := time.Now().Add(10 * time.Minute)
	s.mu.Lock()
	s.bookings[booking.ID].OTPHash = &hash
	s.bookings[booking.ID].OTPExpiresAt = &expires
	s.mu.Unlock()

	if _, err := svc.Cancel(context.Background(), booking.ID, uuid.New(), entity.RoleAdmin); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	final, _ := s.repo().Booking.FindByID(context.Background(), booking.ID)
	if final.OTPHash != nil || final.OTPExpiresAt != nil {
		t.Fatal("cancel left a dangling completion code on the booking")
	}
}

func TestAssignThenRejectMovesToRejected(t *testing.T) {
	s := newMemStore()
	svc, notifier, _ := newTestBookingService(s)
	workerID := seedWorker(s, "plumbing")
	adminID := uuid.New()

	booking := seedBooking(s, entity.BookingStatusPending)

	resp, err := svc.Assign(context.Background(), booking.ID, workerID, adminID)
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if resp.Status != entity.BookingStatusWorkerAssigned {
		t.Fatalf("status = %s, want worker_assigned", resp.Status)
	}

	if err := svc.Reject(context.Background(), booking.ID, workerID); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	final, _ := s.repo().Booking.FindByID(context.Background(), booking.ID)
	if final.Status != entity.BookingStatusRejected {
		t.Fatalf("status = %s, want rejected", final.Status)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.transitions) != 2 {
		t.Fatalf("notifier saw %d transitions, want 2", len(notifier.transitions))
	}
}

// A candidate reject during broadcast must not move the booking; it only
// records a cool-down.
func TestCandidateRejectLeavesBookingPending(t *testing.T) {
	s := newMemStore()
	svc, _, dispatcher := newTestBookingService(s)
	workerID := seedWorker(s, "plumbing")

	booking := seedBooking(s, entity.BookingStatusPending)

	if err := svc.Reject(context.Background(), booking.ID, workerID); err != nil {
		t.Fatalf("candidate reject failed: %v", err)
	}

	final, _ := s.repo().Booking.FindByID(context.Background(), booking.ID)
	if final.Status != entity.BookingStatusPending {
		t.Fatalf("status = %s, want pending", final.Status)
	}
	if dispatcher.rejections != 1 {
		t.Fatalf("cool-down recordings = %d, want 1", dispatcher.rejections)
	}
}

// A worker with no stake in the booking gets an error from reject, not a
// silent acknowledgement.
func TestRejectByUninvolvedWorkerFails(t *testing.T) {
	s := newMemStore()
	svc, _, dispatcher := newTestBookingService(s)
	winner := seedWorker(s, "plumbing")
	outsider := seedWorker(s, "plumbing")

	// Already accepted by someone else.
	accepted := seedBooking(s, entity.BookingStatusAccepted)
	s.mu.Lock()
	s.bookings[accepted.ID].WorkerID = &winner
	s.mu.Unlock()

	if err := svc.Reject(context.Background(), accepted.ID, outsider); !errors.Is(err, ErrConflict) {
		t.Fatalf("reject of accepted booking by outsider: err = %v, want ErrConflict", err)
	}

	// Force-assigned to someone else.
	pinned := seedBooking(s, entity.BookingStatusWorkerAssigned)
	s.mu.Lock()
	s.bookings[pinned.ID].WorkerID = &winner
	s.mu.Unlock()

	if err := svc.Reject(context.Background(), pinned.ID, outsider); !errors.Is(err, ErrForbidden) {
		t.Fatalf("reject of booking assigned to another worker: err = %v, want ErrForbidden", err)
	}

	if dispatcher.rejections != 0 {
		t.Fatalf("cool-down recordings = %d, want 0 for uninvolved workers", dispatcher.rejections)
	}
}

func TestStatusHistoryRecordsEveryTransition(t *testing.T) {
	s := newMemStore()
	svc, _, _ := newTestBookingService(s)
	workerID := seedWorker(s, "plumbing")

	customerID := uuid.New()
	created, err := svc.Create(context.Background(), customerID, validCreateRequest())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	bookingID := uuid.MustParse(created.ID)

	if _, err := svc.Accept(context.Background(), bookingID, workerID, ""); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if _, err := svc.Start(context.Background(), bookingID, workerID); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	detail, err := svc.GetByID(context.Background(), bookingID, customerID, entity.RoleCustomer)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	want := []entity.BookingStatus{
		entity.BookingStatusPending,
		entity.BookingStatusAccepted,
		entity.BookingStatusInProgress,
	}
	if len(detail.StatusHistory) != len(want) {
		t.Fatalf("history length = %d, want %d", len(detail.StatusHistory), len(want))
	}
	for i, entry := range detail.StatusHistory {
		if entry.ToStatus != want[i] {
			t.Fatalf("history[%d].to = %s, want %s", i, entry.ToStatus, want[i])
		}
	}
}
