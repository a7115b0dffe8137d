package usecase

import (
	"context"
	"sync"
	"time"

	"servicehub/internal/data/entity"
	"servicehub/internal/data/repository"
	"servicehub/internal/dto/request"
	"servicehub/internal/dto/response"
	"servicehub/pkg/mail"
	"servicehub/pkg/payment"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// errUniqueViolation mimics the postgres duplicate-key error so
// repository.IsUniqueViolation recognizes it.
var errUniqueViolation error = &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}

// memStore backs the in-memory repository fakes. One mutex covers all
// tables so the compare-and-set paths behave like a single database.
type memStore struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*entity.Booking
	history  []*entity.StatusHistory
	workers  map[uuid.UUID]*entity.Worker
	users    map[uuid.UUID]*entity.User
	earnings []*entity.Earning
	reviews  map[uuid.UUID]*entity.Review // by booking ID
	notices  []*entity.Notification
}

func newMemStore() *memStore {
	return &memStore{
		bookings: make(map[uuid.UUID]*entity.Booking),
		workers:  make(map[uuid.UUID]*entity.Worker),
		users:    make(map[uuid.UUID]*entity.User),
		reviews:  make(map[uuid.UUID]*entity.Review),
	}
}

func (s *memStore) repo() *repository.Repository {
	return &repository.Repository{
		User:          &memUserRepo{s},
		Worker:        &memWorkerRepo{s},
		Booking:       &memBookingRepo{s},
		StatusHistory: &memHistoryRepo{s},
		Notification:  &memNotificationRepo{s},
		Earning:       &memEarningRepo{s},
		Review:        &memReviewRepo{s},
	}
}

func copyBooking(b *entity.Booking) *entity.Booking {
	cp := *b
	return &cp
}

// ---- bookings ----

type memBookingRepo struct{ s *memStore }

func (r *memBookingRepo) Create(ctx context.Context, booking *entity.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if booking.PaymentOrderID != nil {
		for _, b := range r.s.bookings {
			if b.PaymentOrderID != nil && *b.PaymentOrderID == *booking.PaymentOrderID {
				return errUniqueViolation
			}
		}
	}
	r.s.bookings[booking.ID] = copyBooking(booking)
	return nil
}

func (r *memBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, nil
	}
	return copyBooking(b), nil
}

func (r *memBookingRepo) FindByPaymentOrderID(ctx context.Context, orderID string) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, b := range r.s.bookings {
		if b.PaymentOrderID != nil && *b.PaymentOrderID == orderID {
			return copyBooking(b), nil
		}
	}
	return nil, nil
}

func (r *memBookingRepo) FindByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.Booking
	for _, b := range r.s.bookings {
		if b.CustomerID == customerID {
			out = append(out, copyBooking(b))
		}
	}
	return out, nil
}

func (r *memBookingRepo) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, b := range r.s.bookings {
		if b.CustomerID == customerID {
			n++
		}
	}
	return n, nil
}

func (r *memBookingRepo) FindByWorkerID(ctx context.Context, workerID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.Booking
	for _, b := range r.s.bookings {
		if b.WorkerID != nil && *b.WorkerID == workerID {
			out = append(out, copyBooking(b))
		}
	}
	return out, nil
}

func (r *memBookingRepo) UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus, workerID *uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}

	b.Status = to
	if workerID != nil {
		b.WorkerID = workerID
	}
	if to == entity.BookingStatusCancelled {
		b.OTPHash = nil
		b.OTPExpiresAt = nil
	}
	b.UpdatedAt = time.Now()
	return true, nil
}

func (r *memBookingRepo) SetCompletionOTP(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok || b.Status != entity.BookingStatusInProgress {
		return false, nil
	}

	b.OTPHash = &hash
	b.OTPExpiresAt = &expiresAt
	b.OTPAttempts = 0
	return true, nil
}

func (r *memBookingRepo) IncrementOTPAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok || b.OTPHash == nil {
		return 0, nil
	}
	b.OTPAttempts++
	return b.OTPAttempts, nil
}

func (r *memBookingRepo) ClearCompletionOTP(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if b, ok := r.s.bookings[id]; ok {
		b.OTPHash = nil
		b.OTPExpiresAt = nil
		b.OTPAttempts = 0
	}
	return nil
}

func (r *memBookingRepo) CompleteAndCredit(ctx context.Context, id, workerID uuid.UUID, amount float64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok || b.Status != entity.BookingStatusInProgress {
		return false, nil
	}

	b.Status = entity.BookingStatusCompleted
	b.OTPHash = nil
	b.OTPExpiresAt = nil
	b.OTPAttempts = 0

	r.s.earnings = append(r.s.earnings, &entity.Earning{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: time.Now()},
		WorkerID:   workerID,
		BookingID:  id,
		Amount:     amount,
	})
	return true, nil
}

// ---- status history ----

type memHistoryRepo struct{ s *memStore }

func (r *memHistoryRepo) Append(ctx context.Context, h *entity.StatusHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	h.ID = int64(len(r.s.history) + 1)
	r.s.history = append(r.s.history, h)
	return nil
}

func (r *memHistoryRepo) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.StatusHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.StatusHistory
	for _, h := range r.s.history {
		if h.BookingID == bookingID {
			out = append(out, h)
		}
	}
	return out, nil
}

// ---- workers ----

type memWorkerRepo struct{ s *memStore }

func (r *memWorkerRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Worker, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.workers[userID]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *memWorkerRepo) FindEligible(ctx context.Context, serviceType string) ([]*entity.Worker, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.Worker
	for _, w := range r.s.workers {
		if !w.IsAvailable || !w.IsVerified {
			continue
		}
		for _, svc := range w.Services {
			if svc == serviceType {
				cp := *w
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (r *memWorkerRepo) SetAvailability(ctx context.Context, userID uuid.UUID, available bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if w, ok := r.s.workers[userID]; ok {
		w.IsAvailable = available
	}
	return nil
}

func (r *memWorkerRepo) AddRating(ctx context.Context, userID uuid.UUID, rating int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if w, ok := r.s.workers[userID]; ok {
		w.Rating = (w.Rating*float64(w.RatingCount) + float64(rating)) / float64(w.RatingCount+1)
		w.RatingCount++
	}
	return nil
}

// ---- users ----

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) FindAdmins(ctx context.Context) ([]*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.User
	for _, u := range r.s.users {
		if u.Role == entity.RoleAdmin && u.IsActive {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- notifications ----

type memNotificationRepo struct{ s *memStore }

func (r *memNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.notices = append(r.s.notices, n)
	return nil
}

func (r *memNotificationRepo) CreateBatch(ctx context.Context, ns []*entity.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.notices = append(r.s.notices, ns...)
	return nil
}

func (r *memNotificationRepo) FindByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*entity.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.Notification
	for _, n := range r.s.notices {
		if n.RecipientID != recipientID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *memNotificationRepo) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, n := range r.s.notices {
		if n.ID == id && n.RecipientID == recipientID {
			n.IsRead = true
		}
	}
	return nil
}

// ---- earnings ----

type memEarningRepo struct{ s *memStore }

func (r *memEarningRepo) FindByWorkerID(ctx context.Context, workerID uuid.UUID, limit, offset int) ([]*entity.Earning, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.Earning
	for _, e := range r.s.earnings {
		if e.WorkerID == workerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memEarningRepo) TotalByWorkerID(ctx context.Context, workerID uuid.UUID) (float64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var total float64
	for _, e := range r.s.earnings {
		if e.WorkerID == workerID {
			total += e.Amount
		}
	}
	return total, nil
}

func (r *memEarningRepo) CountByBookingID(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, e := range r.s.earnings {
		if e.BookingID == bookingID {
			n++
		}
	}
	return n, nil
}

// ---- reviews ----

type memReviewRepo struct{ s *memStore }

func (r *memReviewRepo) Create(ctx context.Context, review *entity.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.reviews[review.BookingID]; exists {
		return errUniqueViolation
	}
	r.s.reviews[review.BookingID] = review
	return nil
}

func (r *memReviewRepo) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	review, ok := r.s.reviews[bookingID]
	if !ok {
		return nil, nil
	}
	return review, nil
}

func (r *memReviewRepo) FindByWorkerID(ctx context.Context, workerID uuid.UUID, limit, offset int) ([]*entity.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.Review
	for _, review := range r.s.reviews {
		if review.WorkerID == workerID {
			out = append(out, review)
		}
	}
	return out, nil
}

// ---- collaborator stubs ----

// stubNotifier counts fan-out calls; delivery itself is covered elsewhere.
type stubNotifier struct {
	mu          sync.Mutex
	transitions []entity.BookingStatus
	broadcasts  int
	timeouts    int
	payments    int
}

func (n *stubNotifier) BookingTransitioned(ctx context.Context, booking *entity.Booking, from, to entity.BookingStatus, actorRole entity.UserRole) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transitions = append(n.transitions, to)
}

func (n *stubNotifier) NewBookingAvailable(ctx context.Context, booking *entity.Booking, workerUserIDs []uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcasts += len(workerUserIDs)
}

func (n *stubNotifier) AssignmentTimedOut(ctx context.Context, booking *entity.Booking, adminIDs []uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.timeouts += len(adminIDs)
}

func (n *stubNotifier) PaymentReceived(ctx context.Context, booking *entity.Booking) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payments++
}

func (n *stubNotifier) List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, req *request.PaginatedRequest) ([]response.NotificationResponse, error) {
	return nil, nil
}

func (n *stubNotifier) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	return nil
}

func (n *stubNotifier) Subscribe(ctx context.Context, recipientID uuid.UUID) (<-chan response.NotificationResponse, error) {
	return nil, ErrStreamUnavailable
}

type stubDispatcher struct {
	mu         sync.Mutex
	broadcasts int
	rejections int
}

func (d *stubDispatcher) Broadcast(ctx context.Context, booking *entity.Booking) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.broadcasts++
}

func (d *stubDispatcher) RecordRejection(ctx context.Context, bookingID, workerUserID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rejections++
	return nil
}

// stubMailer records sent codes; configured=false simulates missing SMTP.
type stubMailer struct {
	mu         sync.Mutex
	configured bool
	sentCodes  []string
}

func (m *stubMailer) SendCompletionCode(to, serviceTitle, code string, expiryMinutes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.configured {
		return mail.ErrNotConfigured
	}
	m.sentCodes = append(m.sentCodes, code)
	return nil
}

type stubGateway struct {
	configured bool
	paid       bool
}

func (g *stubGateway) IsOrderPaid(orderID string) (bool, error) {
	if !g.configured {
		return false, payment.ErrNotConfigured
	}
	return g.paid, nil
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
