package wire

import (
	"net/http"

	"servicehub/internal/adaptor"
	"servicehub/internal/data/repository"
	"servicehub/internal/usecase"
	"servicehub/pkg/mail"
	"servicehub/pkg/middleware"
	"servicehub/pkg/payment"
	"servicehub/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App holds the assembled HTTP surface.
type App struct {
	Router *chi.Mux
}

// Wiring initializes services, handlers, and routes.
func Wiring(
	repo *repository.Repository,
	config *utils.Config,
	rdb *redis.Client,
	mailer mail.Mailer,
	gateway payment.Gateway,
	logger *zap.Logger,
) *App {
	service := usecase.NewService(repo, config, rdb, mailer, gateway, logger)
	handler := adaptor.NewHandler(service, logger)

	router := setupRouter(handler, repo, config, logger)

	return &App{
		Router: router,
	}
}

func setupRouter(
	handler *adaptor.Handler,
	repo *repository.Repository,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.App.CORSOrigins))

	wireBooking(r, handler.Booking, repo, logger)
	wireWorker(r, handler.Worker, repo, logger)
	wireNotification(r, handler.Notification, repo, logger)
	wirePayment(r, handler.Payment, repo, logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
