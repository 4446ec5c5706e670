package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/showcart-backend/internal/batches"
	"github.com/angelmondragon/showcart-backend/internal/cron"
	"github.com/angelmondragon/showcart-backend/internal/ledger"
	"github.com/angelmondragon/showcart-backend/internal/notifications"
	"github.com/angelmondragon/showcart-backend/internal/orders"
	"github.com/angelmondragon/showcart-backend/pkg/config"
	"github.com/angelmondragon/showcart-backend/pkg/db"
	"github.com/angelmondragon/showcart-backend/pkg/instance"
	"github.com/angelmondragon/showcart-backend/pkg/logger"
	"github.com/angelmondragon/showcart-backend/pkg/metrics"
	"github.com/angelmondragon/showcart-backend/pkg/migrate"
	"github.com/angelmondragon/showcart-backend/pkg/outbox"
	"github.com/angelmondragon/showcart-backend/pkg/redis"
)

const lockKeyFormat = "sc:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	// The TTL sweep expires orders through the same service path the API
	// uses, so reservation release and outbox events stay consistent.
	ordersRepo := orders.NewRepository(dbClient.DB())
	batchesRepo := batches.NewRepository(dbClient.DB())
	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), cfg.Checkout.PlatformFeeBps)
	requireResource(ctx, logg, "ledger service", err)

	batchesService, err := batches.NewService(batchesRepo, ordersRepo, dbClient, outboxService, ledgerService)
	requireResource(ctx, logg, "batches service", err)

	ordersService, err := orders.NewService(ordersRepo, dbClient, outboxService, orders.NewInventoryKeeper(), ledgerService, batchesService)
	requireResource(ctx, logg, "orders service", err)

	orderTTLJob, err := cron.NewOrderTTLJob(cron.OrderTTLJobParams{
		Logger:        logg,
		PendingReader: ordersRepo,
		Expirer:       ordersService,
		TTL:           cfg.Checkout.PendingOrderTTL,
	})
	requireResource(ctx, logg, "order ttl job", err)

	outboxRetentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
	})
	requireResource(ctx, logg, "outbox retention job", err)

	notificationCleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notifications.NewRepository(dbClient.DB()),
	})
	requireResource(ctx, logg, "notification cleanup job", err)

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	requireResource(ctx, logg, "cron lock", err)

	registry := cron.NewRegistry(orderTTLJob, outboxRetentionJob, notificationCleanupJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Checkout.SweepInterval,
	})
	requireResource(ctx, logg, "cron service", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(),
		"jobs":        registry.Names(),
	})
	logg.Info(runCtx, "starting cron worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
