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

type WorkerRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Worker, error)

	// FindEligible returns verified, available workers offering the service
	// type. Used by the dispatcher for assignment fan-out.
	FindEligible(ctx context.Context, serviceType string) ([]*entity.Worker, error)
	SetAvailability(ctx context.Context, userID uuid.UUID, available bool) error
	AddRating(ctx context.Context, userID uuid.UUID, rating int) error
}

type workerRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewWorkerRepository(db database.PgxIface, log *zap.Logger) WorkerRepository {
	return &workerRepository{
		db:  db,
		log: log.With(zap.String("repository", "worker")),
	}
}

func (r *workerRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Worker, error) {
	query := `
		SELECT id, user_id, services, is_available, is_verified, rating, rating_count, created_at, updated_at
		FROM workers
		WHERE user_id = $1
	`

	var w entity.Worker
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&w.ID, &w.UserID, &w.Services, &w.IsAvailable, &w.IsVerified,
		&w.Rating, &w.RatingCount, &w.CreatedAt, &w.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find worker by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find worker by user ID %s: %w", userID.String(), err)
	}

	return &w, nil
}

func (r *workerRepository) FindEligible(ctx context.Context, serviceType string) ([]*entity.Worker, error) {
	query := `
		SELECT id, user_id, services, is_available, is_verified, rating, rating_count, created_at, updated_at
		FROM workers
		WHERE $1 = ANY(services)
		  AND is_available = true
		  AND is_verified = true
	`

	rows, err := r.db.Query(ctx, query, serviceType)
	if err != nil {
		r.log.Error("Failed to find eligible workers",
			zap.Error(err),
			zap.String("service_type", serviceType),
		)
		return nil, fmt.Errorf("find eligible workers for %s: %w", serviceType, err)
	}
	defer rows.Close()

	var workers []*entity.Worker
	for rows.Next() {
		var w entity.Worker
		err := rows.Scan(
			&w.ID, &w.UserID, &w.Services, &w.IsAvailable, &w.IsVerified,
			&w.Rating, &w.RatingCount, &w.CreatedAt, &w.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan worker row: %w", err)
		}
		workers = append(workers, &w)
	}

	return workers, rows.Err()
}

func (r *workerRepository) SetAvailability(ctx context.Context, userID uuid.UUID, available bool) error {
	query := `UPDATE workers SET is_available = $2, updated_at = NOW() WHERE user_id = $1`

	tag, err := r.db.Exec(ctx, query, userID, available)
	if err != nil {
		r.log.Error("Failed to set worker availability",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return fmt.Errorf("set availability for worker %s: %w", userID.String(), err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("worker %s not found", userID.String())
	}

	return nil
}

func (r *workerRepository) AddRating(ctx context.Context, userID uuid.UUID, rating int) error {
	// Running average kept denormalized; reviews remain the source records.
	query := `
		UPDATE workers
		SET rating = (rating * rating_count + $2) / (rating_count + 1),
		    rating_count = rating_count + 1,
		    updated_at = NOW()
		WHERE user_id = $1
	`

	tag, err := r.db.Exec(ctx, query, userID, rating)
	if err != nil {
		r.log.Error("Failed to add worker rating",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.Int("rating", rating),
		)
		return fmt.Errorf("add rating for worker %s: %w", userID.String(), err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("worker %s not found", userID.String())
	}

	return nil
}
