package wire

import (
	"servicehub/internal/adaptor"
	"servicehub/internal/data/entity"
	"servicehub/internal/data/repository"
	"servicehub/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireWorker(
	r chi.Router,
	workerHandler *adaptor.WorkerHandler,
	repo *repository.Repository,
	log *zap.Logger,
) {
	r.Route("/api/worker", func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))
		r.Use(middleware.RequireRole(entity.RoleWorker, log))

		// POST /api/worker/bookings/{id}/accept - claim a broadcast or
		// force-assigned booking; first compare-and-set wins
		r.Post("/bookings/{id}/accept", workerHandler.Accept)

		// POST /api/worker/bookings/{id}/reject - decline; assigned worker
		// moves the booking to rejected, a candidate just goes on cool-down
		r.Post("/bookings/{id}/reject", workerHandler.Reject)

		// POST /api/worker/bookings/{id}/start - begin work
		r.Post("/bookings/{id}/start", workerHandler.Start)

		// Completion handshake
		r.Post("/bookings/{id}/complete/request", workerHandler.RequestCompletion)
		r.Post("/bookings/{id}/complete/verify", workerHandler.VerifyCompletion)

		// PUT /api/worker/availability - toggle dispatch eligibility
		r.Put("/availability", workerHandler.SetAvailability)

		// GET /api/worker/jobs - bookings assigned to this worker
		r.Get("/jobs", workerHandler.ListJobs)

		// GET /api/worker/earnings - credited ledger with running total
		r.Get("/earnings", workerHandler.Earnings)

		// GET /api/worker/reviews - reviews received
		r.Get("/reviews", workerHandler.Reviews)
	})
}
