package main

import (
	"context"
	"log"

	"showtime-booking/cmd"
	"showtime-booking/internal/catalog"
	"showtime-booking/internal/data/repository"
	"showtime-booking/internal/queue"
	"showtime-booking/internal/wire"
	"showtime-booking/pkg/database"
	"showtime-booking/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

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

	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Catalog cache is optional; without Redis the client fetches every time.
	var cache *redis.Client
	if config.Redis.Addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		defer cache.Close()
	}

	gateway := catalog.NewClient(config.Catalog.BaseURL, cache, config.Catalog.CacheTTL, logger)

	broker, err := queue.NewBroker(config.Broker.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to broker", zap.Error(err))
	}
	defer broker.Close()

	scheduler, err := queue.NewExpiryScheduler(broker, config, logger)
	if err != nil {
		logger.Fatal("Failed to set up expiry scheduler", zap.Error(err))
	}

	repos := repository.NewRepository(db, logger)

	app := wire.Wiring(repos, gateway, scheduler, config, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go queue.NewExpiryConsumer(app.Service.Booking, config, logger).Run(ctx)
	go queue.NewPaymentConsumer(app.Service.Booking, config, logger).Run(ctx)

	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	cmd.APIServer(app.Router, config.App.Port)
}
