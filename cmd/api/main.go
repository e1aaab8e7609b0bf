package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tiffinbox/tiffinbox-backend/api/routes"
	"github.com/tiffinbox/tiffinbox-backend/internal/notifier"
	"github.com/tiffinbox/tiffinbox-backend/internal/orders"
	"github.com/tiffinbox/tiffinbox-backend/internal/rewards"
	"github.com/tiffinbox/tiffinbox-backend/internal/settlement"
	"github.com/tiffinbox/tiffinbox-backend/internal/wallet"
	"github.com/tiffinbox/tiffinbox-backend/pkg/config"
	"github.com/tiffinbox/tiffinbox-backend/pkg/db"
	"github.com/tiffinbox/tiffinbox-backend/pkg/logger"
	"github.com/tiffinbox/tiffinbox-backend/pkg/metrics"
	"github.com/tiffinbox/tiffinbox-backend/pkg/migrate"
	"github.com/tiffinbox/tiffinbox-backend/pkg/outbox"
	"github.com/tiffinbox/tiffinbox-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	settlementMetrics := metrics.NewSettlementMetrics(registry)

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	notifierSvc, err := notifier.NewService(notifier.NewRepository(dbClient.DB()), dbClient, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifier service", err)
		os.Exit(1)
	}
	dispatcher := notifier.NewDispatcher(notifierSvc, logg)

	rewardsSvc, err := rewards.NewService(rewards.NewRepository(dbClient.DB()), cfg.Rewards.PaisePerCoin)
	if err != nil {
		logg.Error(context.Background(), "failed to create rewards service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(
		orders.NewRepository(dbClient.DB()),
		dbClient,
		rewardsSvc,
		notifierSvc,
		dispatcher,
		settlementMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	settlementSvc, err := settlement.NewService(
		settlement.NewRepository(dbClient.DB()),
		dbClient,
		dispatcher,
		settlementMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	walletSvc, err := wallet.NewService(wallet.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			Redis:         redisClient,
			Registry:      registry,
			DBPinger:      dbClient,
			RedisPinger:   redisClient,
			Orders:        ordersSvc,
			Settlement:    settlementSvc,
			Wallet:        walletSvc,
			Notifications: notifierSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
