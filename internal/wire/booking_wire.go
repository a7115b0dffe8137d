package wire

import (
	"servicehub/internal/adaptor"
	"servicehub/internal/data/entity"
	"servicehub/internal/data/repository"
	"servicehub/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	repo *repository.Repository,
	log *zap.Logger,
) {
	// Customer routes
	r.Route("/api/bookings", func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))

		// POST /api/bookings - create booking (customer)
		r.With(middleware.RequireRole(entity.RoleCustomer, log)).Post("/", bookingHandler.Create)

		// GET /api/bookings - customer's booking history
		r.With(middleware.RequireRole(entity.RoleCustomer, log)).Get("/", bookingHandler.List)

		// GET /api/bookings/{id} - booking detail with status history
		r.Get("/{id}", bookingHandler.Get)

		// PUT /api/bookings/{id}/cancel - cancel (customer, worker or admin)
		r.Put("/{id}/cancel", bookingHandler.Cancel)

		// POST /api/bookings/{id}/review - review a completed booking
		r.With(middleware.RequireRole(entity.RoleCustomer, log)).Post("/{id}/review", bookingHandler.Review)
	})

	// Admin routes
	r.Route("/api/admin/bookings", func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))
		r.Use(middleware.RequireRole(entity.RoleAdmin, log))

		// PUT /api/admin/bookings/{id}/assign - force-assign a worker
		r.Put("/{id}/assign", bookingHandler.Assign)
	})
}
