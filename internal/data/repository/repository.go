package repository

import (
	"errors"

	"servicehub/pkg/database"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type Repository struct {
	User          UserRepository
	Session       SessionRepository
	Worker        WorkerRepository
	Booking       BookingRepository
	StatusHistory StatusHistoryRepository
	Notification  NotificationRepository
	Earning       EarningRepository
	Review        ReviewRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:          NewUserRepository(db, log),
		Session:       NewSessionRepository(db, log),
		Worker:        NewWorkerRepository(db, log),
		Booking:       NewBookingRepository(db, log),
		StatusHistory: NewStatusHistoryRepository(db, log),
		Notification:  NewNotificationRepository(db, log),
		Earning:       NewEarningRepository(db, log),
		Review:        NewReviewRepository(db, log),
	}
}

// IsUniqueViolation reports whether err is a postgres unique constraint
// violation. Callers use it to detect losing a concurrent insert race.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
