package repository

import (
	"context"
	"fmt"
	"time"

	"servicehub/internal/data/entity"
	"servicehub/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// BookingRepository is the durable booking store. All status writes go
// through UpdateStatusCAS or CompleteAndCredit: a conditional update that
// succeeds only when the stored status matches the expected one.
type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByPaymentOrderID(ctx context.Context, orderID string) (*entity.Booking, error)
	FindByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error)
	FindByWorkerID(ctx context.Context, workerID uuid.UUID, limit, offset int) ([]*entity.Booking, error)

	// UpdateStatusCAS moves the booking from expected status to the new one.
	// workerID, when non-nil, claims the booking for that worker in the same
	// write. Returns false when the stored status no longer matches.
	UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus, workerID *uuid.UUID) (bool, error)

	// SetCompletionOTP installs a new hashed completion code, replacing any
	// previous one and resetting attempts. Guarded on status=in_progress.
	SetCompletionOTP(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) (bool, error)
	IncrementOTPAttempts(ctx context.Context, id uuid.UUID) (int, error)
	ClearCompletionOTP(ctx context.Context, id uuid.UUID) error

	// CompleteAndCredit performs the in_progress -> completed transition,
	// clears the OTP, and appends the worker earnings entry in one
	// transaction. Returns false when the CAS precondition fails.
	CompleteAndCredit(ctx context.Context, id, workerID uuid.UUID, amount float64) (bool, error)
}

const bookingColumns = `
	id, customer_id, worker_id, service_type, service_title, status,
	amount, worker_payment, scheduled_date, scheduled_time,
	address_line, city, state, postal_code,
	payment_method, payment_status, payment_order_id, payment_verified,
	otp_hash, otp_expires_at, otp_attempts, created_at, updated_at
`

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var b entity.Booking
	err := row.Scan(
		&b.ID, &b.CustomerID, &b.WorkerID, &b.ServiceType, &b.ServiceTitle, &b.Status,
		&b.Amount, &b.WorkerPayment, &b.ScheduledDate, &b.ScheduledTime,
		&b.Address.Line, &b.Address.City, &b.Address.State, &b.Address.PostalCode,
		&b.PaymentMethod, &b.PaymentStatus, &b.PaymentOrderID, &b.PaymentVerified,
		&b.OTPHash, &b.OTPExpiresAt, &b.OTPAttempts, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (
			id, customer_id, worker_id, service_type, service_title, status,
			amount, worker_payment, scheduled_date, scheduled_time,
			address_line, city, state, postal_code,
			payment_method, payment_status, payment_order_id, payment_verified,
			otp_attempts, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, 0, $19, $20)
	`

	_, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.CustomerID,
		booking.WorkerID,
		booking.ServiceType,
		booking.ServiceTitle,
		booking.Status,
		booking.Amount,
		booking.WorkerPayment,
		booking.ScheduledDate,
		booking.ScheduledTime,
		booking.Address.Line,
		booking.Address.City,
		booking.Address.State,
		booking.Address.PostalCode,
		booking.PaymentMethod,
		booking.PaymentStatus,
		booking.PaymentOrderID,
		booking.PaymentVerified,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		if !IsUniqueViolation(err) {
			r.log.Error("Failed to create booking",
				zap.Error(err),
				zap.String("booking_id", booking.ID.String()),
				zap.String("customer_id", booking.CustomerID.String()),
			)
		}
		return fmt.Errorf("create booking %s: %w", booking.ID.String(), err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT` + bookingColumns + `FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByPaymentOrderID(ctx context.Context, orderID string) (*entity.Booking, error) {
	query := `SELECT` + bookingColumns + `FROM bookings WHERE payment_order_id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, orderID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by payment order ID",
			zap.Error(err),
			zap.String("order_id", orderID),
		)
		return nil, fmt.Errorf("find booking by order ID %s: %w", orderID, err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `SELECT` + bookingColumns + `
		FROM bookings
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, customerID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by customer ID",
			zap.Error(err),
			zap.String("customer_id", customerID.String()),
		)
		return nil, fmt.Errorf("find bookings by customer ID %s: %w", customerID.String(), err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

func (r *bookingRepository) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE customer_id = $1`

	var count int64
	if err := r.db.QueryRow(ctx, query, customerID).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings by customer ID",
			zap.Error(err),
			zap.String("customer_id", customerID.String()),
		)
		return 0, fmt.Errorf("count bookings by customer ID %s: %w", customerID.String(), err)
	}

	return count, nil
}

func (r *bookingRepository) FindByWorkerID(ctx context.Context, workerID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `SELECT` + bookingColumns + `
		FROM bookings
		WHERE worker_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, workerID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by worker ID",
			zap.Error(err),
			zap.String("worker_id", workerID.String()),
		)
		return nil, fmt.Errorf("find bookings by worker ID %s: %w", workerID.String(), err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

func collectBookings(rows pgx.Rows) ([]*entity.Booking, error) {
	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func (r *bookingRepository) UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus, workerID *uuid.UUID) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $3,
		    worker_id = COALESCE($4, worker_id),
		    otp_hash = CASE WHEN $3 = 'cancelled' THEN NULL ELSE otp_hash END,
		    otp_expires_at = CASE WHEN $3 = 'cancelled' THEN NULL ELSE otp_expires_at END,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	tag, err := r.db.Exec(ctx, query, id, from, to, workerID)
	if err != nil {
		r.log.Error("Failed to update booking status",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("update booking %s status %s -> %s: %w", id.String(), string(from), string(to), err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *bookingRepository) SetCompletionOTP(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET otp_hash = $2, otp_expires_at = $3, otp_attempts = 0, updated_at = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`

	tag, err := r.db.Exec(ctx, query, id, hash, expiresAt)
	if err != nil {
		r.log.Error("Failed to set completion OTP",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return false, fmt.Errorf("set completion OTP for booking %s: %w", id.String(), err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *bookingRepository) IncrementOTPAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE bookings
		SET otp_attempts = otp_attempts + 1, updated_at = NOW()
		WHERE id = $1 AND otp_hash IS NOT NULL
		RETURNING otp_attempts
	`

	var attempts int
	err := r.db.QueryRow(ctx, query, id).Scan(&attempts)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		r.log.Error("Failed to increment OTP attempts",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return 0, fmt.Errorf("increment OTP attempts for booking %s: %w", id.String(), err)
	}

	return attempts, nil
}

func (r *bookingRepository) ClearCompletionOTP(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE bookings
		SET otp_hash = NULL, otp_expires_at = NULL, otp_attempts = 0, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		r.log.Error("Failed to clear completion OTP",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return fmt.Errorf("clear completion OTP for booking %s: %w", id.String(), err)
	}

	return nil
}

func (r *bookingRepository) CompleteAndCredit(ctx context.Context, id, workerID uuid.UUID, amount float64) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin complete transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET status = 'completed',
		    otp_hash = NULL, otp_expires_at = NULL, otp_attempts = 0,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`, id)
	if err != nil {
		r.log.Error("Failed to complete booking",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return false, fmt.Errorf("complete booking %s: %w", id.String(), err)
	}

	if tag.RowsAffected() == 0 {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO worker_earnings (id, worker_id, booking_id, amount, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, uuid.New(), workerID, id, amount)
	if err != nil {
		r.log.Error("Failed to credit worker earnings",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("worker_id", workerID.String()),
		)
		return false, fmt.Errorf("credit earnings for booking %s: %w", id.String(), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit complete transaction: %w", err)
	}

	return true, nil
}
