// main.go
package main

import (
	"log"

	"servicehub/cmd"
	"servicehub/internal/data/repository"
	"servicehub/internal/wire"
	"servicehub/pkg/database"
	"servicehub/pkg/mail"
	"servicehub/pkg/payment"
	"servicehub/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Redis backs reject cool-downs and live notifications. The service
	// degrades to poll-only delivery without it.
	rdb, err := database.InitRedis(config.Redis.URL)
	if err != nil {
		logger.Warn("Redis unavailable, live notifications disabled", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
		logger.Info("Redis connected successfully")
	}

	mailer := mail.NewMailer(config.Email, logger)
	gateway := payment.NewGateway(config.Payment.GatewayKeyID, config.Payment.GatewayKeySecret, logger)

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Wire all dependencies
	app := wire.Wiring(repos, config, rdb, mailer, gateway, logger)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	cmd.APIServer(app.Router, config.App.Port)
}
