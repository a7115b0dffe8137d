package repository

import (
	"context"
	"fmt"

	"servicehub/internal/data/entity"
	"servicehub/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Review, error)
	FindByWorkerID(ctx context.Context, workerID uuid.UUID, limit, offset int) ([]*entity.Review, error)
}

type reviewRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewReviewRepository(db database.PgxIface, log *zap.Logger) ReviewRepository {
	return &reviewRepository{
		db:  db,
		log: log.With(zap.String("repository", "review")),
	}
}

func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) error {
	query := `
		INSERT INTO reviews (id, booking_id, customer_id, worker_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		review.ID,
		review.BookingID,
		review.CustomerID,
		review.WorkerID,
		review.Rating,
		review.Comment,
		review.CreatedAt,
		review.UpdatedAt,
	)

	if err != nil {
		if !IsUniqueViolation(err) {
			r.log.Error("Failed to create review",
				zap.Error(err),
				zap.String("booking_id", review.BookingID.String()),
			)
		}
		return fmt.Errorf("create review for booking %s: %w", review.BookingID.String(), err)
	}

	return nil
}

func (r *reviewRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Review, error) {
	query := `
		SELECT id, booking_id, customer_id, worker_id, rating, comment, created_at, updated_at
		FROM reviews
		WHERE booking_id = $1
	`

	var review entity.Review
	err := r.db.QueryRow(ctx, query, bookingID).Scan(
		&review.ID, &review.BookingID, &review.CustomerID, &review.WorkerID,
		&review.Rating, &review.Comment, &review.CreatedAt, &review.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find review by booking ID",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find review by booking ID %s: %w", bookingID.String(), err)
	}

	return &review, nil
}

func (r *reviewRepository) FindByWorkerID(ctx context.Context, workerID uuid.UUID, limit, offset int) ([]*entity.Review, error) {
	query := `
		SELECT id, booking_id, customer_id, worker_id, rating, comment, created_at, updated_at
		FROM reviews
		WHERE worker_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, workerID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find reviews by worker ID",
			zap.Error(err),
			zap.String("worker_id", workerID.String()),
		)
		return nil, fmt.Errorf("find reviews by worker ID %s: %w", workerID.String(), err)
	}
	defer rows.Close()

	var reviews []*entity.Review
	for rows.Next() {
		var review entity.Review
		err := rows.Scan(
			&review.ID, &review.BookingID, &review.CustomerID, &review.WorkerID,
			&review.Rating, &review.Comment, &review.CreatedAt, &review.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, &review)
	}

	return reviews, rows.Err()
}
