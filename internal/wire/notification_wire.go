package wire

import (
	"servicehub/internal/adaptor"
	"servicehub/internal/data/repository"
	"servicehub/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireNotification(
	r chi.Router,
	notificationHandler *adaptor.NotificationHandler,
	repo *repository.Repository,
	log *zap.Logger,
) {
	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))

		// GET /api/notifications - durable inbox, ?unread=true filters
		r.Get("/", notificationHandler.List)

		// GET /api/notifications/stream - live push via server-sent events
		r.Get("/stream", notificationHandler.Stream)

		// PUT /api/notifications/{id}/read
		r.Put("/{id}/read", notificationHandler.MarkRead)
	})
}
