package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/showcart-backend/api/controllers"
	batchcontrollers "github.com/angelmondragon/showcart-backend/api/controllers/batches"
	ordercontrollers "github.com/angelmondragon/showcart-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/showcart-backend/api/controllers/webhooks"
	"github.com/angelmondragon/showcart-backend/api/middleware"
	"github.com/angelmondragon/showcart-backend/internal/auth"
	"github.com/angelmondragon/showcart-backend/internal/batches"
	checkoutsvc "github.com/angelmondragon/showcart-backend/internal/checkout"
	"github.com/angelmondragon/showcart-backend/internal/notifications"
	"github.com/angelmondragon/showcart-backend/internal/orders"
	"github.com/angelmondragon/showcart-backend/internal/payments"
	"github.com/angelmondragon/showcart-backend/internal/products"
	"github.com/angelmondragon/showcart-backend/internal/shows"
	stripewebhook "github.com/angelmondragon/showcart-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/showcart-backend/pkg/auth/session"
	"github.com/angelmondragon/showcart-backend/pkg/config"
	"github.com/angelmondragon/showcart-backend/pkg/db"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
	"github.com/angelmondragon/showcart-backend/pkg/logger"
	"github.com/angelmondragon/showcart-backend/pkg/redis"
	"github.com/angelmondragon/showcart-backend/pkg/stripe"
)

// redisBackend is the slice of the Redis client the router hands to its
// middleware and readiness probe.
type redisBackend interface {
	redis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient redisBackend,
	sessions session.AccessSessionChecker,
	authService auth.Service,
	showService shows.Service,
	productService products.Service,
	checkoutService checkoutsvc.Service,
	paymentsService payments.Service,
	ordersService orders.Service,
	batchesService batches.Service,
	notificationsService notifications.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	// Probes sit at the root so the load balancer needs no API prefix.
	r.Get("/healthz", controllers.Healthz(cfg))
	r.Get("/readyz", controllers.Readyz(cfg, logg, dbP, redisClient))

	// Stripe calls this directly; it authenticates by signature, not token.
	r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))

	r.Get("/api/public/ping", controllers.PublicPing())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
		r.Post("/logout", controllers.AuthLogout(authService, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		shopCtx := middleware.ShopContext(logg)
		buyerOnly := middleware.RequireRole(string(enums.UserRoleBuyer), logg)

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/shows", func(r chi.Router) {
			r.With(shopCtx).Post("/", controllers.ShowCreate(showService, logg))
			r.With(shopCtx).Post("/{showId}/start", controllers.ShowStart(showService, logg))
			r.With(shopCtx).Post("/{showId}/end", controllers.ShowEnd(showService, logg))
			r.Get("/{showId}", controllers.ShowGet(showService, logg))
			r.Get("/{showId}/products", controllers.ShowProducts(productService, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Use(shopCtx)
			r.Post("/", controllers.ProductCreate(productService, logg))
			r.Post("/{productId}/restock", controllers.ProductRestock(productService, logg))
			r.Post("/{productId}/activate", controllers.ProductActivate(productService, logg))
			r.Post("/{productId}/deactivate", controllers.ProductDeactivate(productService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Use(buyerOnly)
			r.Post("/", controllers.Checkout(checkoutService, logg))
			r.Post("/payment-intent", controllers.PaymentIntent(paymentsService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersService, logg))
			r.With(buyerOnly).Post("/{orderId}/cancel", ordercontrollers.Cancel(ordersService, logg))
			r.With(shopCtx).Post("/{orderId}/refund", ordercontrollers.Refund(ordersService, logg))
		})

		r.Route("/batches", func(r chi.Router) {
			r.Get("/", batchcontrollers.List(batchesService, logg))
			r.Get("/{batchId}", batchcontrollers.Detail(batchesService, logg))
			r.With(buyerOnly).Post("/{batchId}/checkout-complete", batchcontrollers.CheckoutComplete(batchesService, logg))
			r.With(shopCtx).Post("/{batchId}/complete", batchcontrollers.Complete(batchesService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}
