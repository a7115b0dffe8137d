package repository

import (
	"context"
	"fmt"

	"servicehub/internal/data/entity"
	"servicehub/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EarningRepository reads the append-only earnings ledger. Writes happen
// inside BookingRepository.CompleteAndCredit so the credit commits with the
// completed transition.
type EarningRepository interface {
	FindByWorkerID(ctx context.Context, workerID uuid.UUID, limit, offset int) ([]*entity.Earning, error)
	TotalByWorkerID(ctx context.Context, workerID uuid.UUID) (float64, error)
	CountByBookingID(ctx context.Context, bookingID uuid.UUID) (int64, error)
}

type earningRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewEarningRepository(db database.PgxIface, log *zap.Logger) EarningRepository {
	return &earningRepository{
		db:  db,
		log: log.With(zap.String("repository", "earning")),
	}
}

func (r *earningRepository) FindByWorkerID(ctx context.Context, workerID uuid.UUID, limit, offset int) ([]*entity.Earning, error) {
	query := `
		SELECT id, worker_id, booking_id, amount, created_at
		FROM worker_earnings
		WHERE worker_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, workerID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find earnings",
			zap.Error(err),
			zap.String("worker_id", workerID.String()),
		)
		return nil, fmt.Errorf("find earnings for worker %s: %w", workerID.String(), err)
	}
	defer rows.Close()

	var earnings []*entity.Earning
	for rows.Next() {
		var e entity.Earning
		if err := rows.Scan(&e.ID, &e.WorkerID, &e.BookingID, &e.Amount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan earning row: %w", err)
		}
		earnings = append(earnings, &e)
	}

	return earnings, rows.Err()
}

func (r *earningRepository) TotalByWorkerID(ctx context.Context, workerID uuid.UUID) (float64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM worker_earnings WHERE worker_id = $1`

	var total float64
	if err := r.db.QueryRow(ctx, query, workerID).Scan(&total); err != nil {
		r.log.Error("Failed to total earnings",
			zap.Error(err),
			zap.String("worker_id", workerID.String()),
		)
		return 0, fmt.Errorf("total earnings for worker %s: %w", workerID.String(), err)
	}

	return total, nil
}

func (r *earningRepository) CountByBookingID(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM worker_earnings WHERE booking_id = $1`

	var count int64
	if err := r.db.QueryRow(ctx, query, bookingID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count earnings for booking %s: %w", bookingID.String(), err)
	}

	return count, nil
}
