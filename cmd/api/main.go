package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/showcart-backend/api/routes"
	"github.com/angelmondragon/showcart-backend/internal/auth"
	"github.com/angelmondragon/showcart-backend/internal/batches"
	"github.com/angelmondragon/showcart-backend/internal/checkout"
	"github.com/angelmondragon/showcart-backend/internal/ledger"
	"github.com/angelmondragon/showcart-backend/internal/notifications"
	"github.com/angelmondragon/showcart-backend/internal/orders"
	"github.com/angelmondragon/showcart-backend/internal/payments"
	"github.com/angelmondragon/showcart-backend/internal/products"
	"github.com/angelmondragon/showcart-backend/internal/shops"
	"github.com/angelmondragon/showcart-backend/internal/shows"
	"github.com/angelmondragon/showcart-backend/internal/users"
	stripewebhook "github.com/angelmondragon/showcart-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/showcart-backend/pkg/auth/session"
	"github.com/angelmondragon/showcart-backend/pkg/config"
	"github.com/angelmondragon/showcart-backend/pkg/db"
	"github.com/angelmondragon/showcart-backend/pkg/logger"
	"github.com/angelmondragon/showcart-backend/pkg/migrate"
	"github.com/angelmondragon/showcart-backend/pkg/outbox"
	"github.com/angelmondragon/showcart-backend/pkg/redis"
	"github.com/angelmondragon/showcart-backend/pkg/stripe"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	usersRepo := users.NewRepository(dbClient.DB())
	shopsRepo := shops.NewRepository(dbClient.DB())
	showsRepo := shows.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	batchesRepo := batches.NewRepository(dbClient.DB())

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		ShopsRepo:      shopsRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	requireResource(ctx, logg, "auth service", err)

	showService, err := shows.NewService(showsRepo)
	requireResource(ctx, logg, "shows service", err)

	productService, err := products.NewService(productsRepo, showsRepo)
	requireResource(ctx, logg, "products service", err)

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), cfg.Checkout.PlatformFeeBps)
	requireResource(ctx, logg, "ledger service", err)

	batchesService, err := batches.NewService(batchesRepo, ordersRepo, dbClient, outboxService, ledgerService)
	requireResource(ctx, logg, "batches service", err)

	ordersService, err := orders.NewService(ordersRepo, dbClient, outboxService, orders.NewInventoryKeeper(), ledgerService, batchesService)
	requireResource(ctx, logg, "orders service", err)

	checkoutService, err := checkout.NewService(dbClient, ordersRepo, productsRepo, showsRepo, shopsRepo, nil, outboxService, ordersService, cfg.Checkout.MaxQuantityPerOrder)
	requireResource(ctx, logg, "checkout service", err)

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	requireResource(ctx, logg, "stripe client", err)

	paymentsService, err := payments.NewService(ordersRepo, shopsRepo, payments.NewStripeClient(stripeClient), redisClient, cfg.Checkout.PendingOrderTTL)
	requireResource(ctx, logg, "payments service", err)

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "notifications service", err)

	stripeWebhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders: ordersService,
		Logger: logg,
	})
	requireResource(ctx, logg, "stripe webhook service", err)

	stripeWebhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.OutboxIdempotencyTTL, "stripe_webhook")
	requireResource(ctx, logg, "stripe webhook guard", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			authService,
			showService,
			productService,
			checkoutService,
			paymentsService,
			ordersService,
			batchesService,
			notificationsService,
			stripeClient,
			stripeWebhookService,
			stripeWebhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(runCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
