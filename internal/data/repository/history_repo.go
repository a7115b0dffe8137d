package repository

import (
	"context"
	"fmt"

	"servicehub/internal/data/entity"
	"servicehub/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatusHistoryRepository is the append-only audit trail of transitions.
// Entries are ordered by the store's commit order, which is authoritative.
type StatusHistoryRepository interface {
	Append(ctx context.Context, entry *entity.StatusHistory) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.StatusHistory, error)
}

type statusHistoryRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewStatusHistoryRepository(db database.PgxIface, log *zap.Logger) StatusHistoryRepository {
	return &statusHistoryRepository{
		db:  db,
		log: log.With(zap.String("repository", "status_history")),
	}
}

func (r *statusHistoryRepository) Append(ctx context.Context, entry *entity.StatusHistory) error {
	query := `
		INSERT INTO booking_status_history (booking_id, from_status, to_status, actor_role, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		entry.BookingID,
		entry.FromStatus,
		entry.ToStatus,
		entry.ActorRole,
		entry.ActorID,
		entry.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to append status history",
			zap.Error(err),
			zap.String("booking_id", entry.BookingID.String()),
			zap.String("to", string(entry.ToStatus)),
		)
		return fmt.Errorf("append status history for booking %s: %w", entry.BookingID.String(), err)
	}

	return nil
}

func (r *statusHistoryRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.StatusHistory, error) {
	query := `
		SELECT id, booking_id, from_status, to_status, actor_role, actor_id, created_at
		FROM booking_status_history
		WHERE booking_id = $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to find status history",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find status history for booking %s: %w", bookingID.String(), err)
	}
	defer rows.Close()

	var entries []*entity.StatusHistory
	for rows.Next() {
		var e entity.StatusHistory
		err := rows.Scan(&e.ID, &e.BookingID, &e.FromStatus, &e.ToStatus, &e.ActorRole, &e.ActorID, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan status history row: %w", err)
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}
