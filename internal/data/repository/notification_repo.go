package repository

import (
	"context"
	"fmt"

	"servicehub/internal/data/entity"
	"servicehub/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	CreateBatch(ctx context.Context, ns []*entity.Notification) error
	FindByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) error
}

type notificationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewNotificationRepository(db database.PgxIface, log *zap.Logger) NotificationRepository {
	return &notificationRepository{
		db:  db,
		log: log.With(zap.String("repository", "notification")),
	}
}

const insertNotification = `
	INSERT INTO notifications (id, recipient_id, recipient_role, type, message, booking_id, is_read, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, false, $7)
`

func (r *notificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	_, err := r.db.Exec(ctx, insertNotification,
		n.ID, n.RecipientID, n.RecipientRole, n.Type, n.Message, n.BookingID, n.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create notification",
			zap.Error(err),
			zap.String("recipient_id", n.RecipientID.String()),
			zap.String("type", string(n.Type)),
		)
		return fmt.Errorf("create notification for %s: %w", n.RecipientID.String(), err)
	}

	return nil
}

func (r *notificationRepository) CreateBatch(ctx context.Context, ns []*entity.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin notification batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, n := range ns {
		_, err := tx.Exec(ctx, insertNotification,
			n.ID, n.RecipientID, n.RecipientRole, n.Type, n.Message, n.BookingID, n.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to create notification in batch",
				zap.Error(err),
				zap.String("recipient_id", n.RecipientID.String()),
			)
			return fmt.Errorf("create notification batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit notification batch: %w", err)
	}

	return nil
}

func (r *notificationRepository) FindByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*entity.Notification, error) {
	query := `
		SELECT id, recipient_id, recipient_role, type, message, booking_id, is_read, created_at
		FROM notifications
		WHERE recipient_id = $1
		  AND ($2 = false OR is_read = false)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, recipientID, unreadOnly, limit, offset)
	if err != nil {
		r.log.Error("Failed to find notifications",
			zap.Error(err),
			zap.String("recipient_id", recipientID.String()),
		)
		return nil, fmt.Errorf("find notifications for %s: %w", recipientID.String(), err)
	}
	defer rows.Close()

	var ns []*entity.Notification
	for rows.Next() {
		var n entity.Notification
		err := rows.Scan(&n.ID, &n.RecipientID, &n.RecipientRole, &n.Type, &n.Message, &n.BookingID, &n.IsRead, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		ns = append(ns, &n)
	}

	return ns, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	query := `UPDATE notifications SET is_read = true WHERE id = $1 AND recipient_id = $2`

	tag, err := r.db.Exec(ctx, query, id, recipientID)
	if err != nil {
		r.log.Error("Failed to mark notification read",
			zap.Error(err),
			zap.String("notification_id", id.String()),
		)
		return fmt.Errorf("mark notification %s read: %w", id.String(), err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %s not found", id.String())
	}

	return nil
}
