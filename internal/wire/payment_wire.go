package wire

import (
	"servicehub/internal/adaptor"
	"servicehub/internal/data/entity"
	"servicehub/internal/data/repository"
	"servicehub/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(
	r chi.Router,
	paymentHandler *adaptor.PaymentHandler,
	repo *repository.Repository,
	log *zap.Logger,
) {
	r.Route("/api/payments", func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))
		r.Use(middleware.RequireRole(entity.RoleCustomer, log))

		// POST /api/payments/reconcile - report an externally paid order;
		// idempotent on the order id
		r.Post("/reconcile", paymentHandler.Reconcile)
	})
}
