package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tiffinbox/tiffinbox-backend/api/controllers"
	"github.com/tiffinbox/tiffinbox-backend/api/middleware"
	"github.com/tiffinbox/tiffinbox-backend/internal/notifier"
	"github.com/tiffinbox/tiffinbox-backend/internal/orders"
	"github.com/tiffinbox/tiffinbox-backend/internal/settlement"
	"github.com/tiffinbox/tiffinbox-backend/internal/wallet"
	"github.com/tiffinbox/tiffinbox-backend/pkg/config"
	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
	"github.com/tiffinbox/tiffinbox-backend/pkg/logger"
	"github.com/tiffinbox/tiffinbox-backend/pkg/redis"
)

// Deps carries every dependency the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Redis    *redis.Client
	Registry prometheus.Gatherer

	DBPinger    controllers.Pinger
	RedisPinger controllers.Pinger

	Orders        orders.Service
	Settlement    settlement.Service
	Wallet        wallet.Service
	Notifications notifier.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	otpPolicy := middleware.NewRateLimitPolicy("otp", cfg.RateLimit.OTPWindow, cfg.RateLimit.OTPLimit)
	depositPolicy := middleware.NewRateLimitPolicy("deposit", cfg.RateLimit.DepositWindow, cfg.RateLimit.DepositLimit)

	// A nil *redis.Client inside a non-nil interface would slip past the
	// middleware nil checks, so only hand the stores over when Redis is wired.
	var idemStore redis.IdempotencyStore
	var limiterStore middleware.RateLimiterStore
	if deps.Redis != nil {
		idemStore = deps.Redis
		limiterStore = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"postgres": deps.DBPinger,
			"redis":    deps.RedisPinger,
		}))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletBalance(deps.Wallet, logg))
			r.Get("/transactions", controllers.WalletTransactions(deps.Wallet, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})

		r.Route("/delivery", func(r chi.Router) {
			// Resend is reachable by the customer who placed the order too.
			r.With(middleware.RateLimit(otpPolicy, limiterStore, logg)).
				Post("/orders/{orderId}/resend-otp", controllers.ResendDeliveryOTP(deps.Orders, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.UserRoleDelivery.String(), logg))
				r.With(middleware.RateLimit(otpPolicy, limiterStore, logg)).
					Post("/otp/verify", controllers.VerifyDeliveryOTP(deps.Orders, logg))
				r.Post("/orders/{orderId}/confirm", controllers.ConfirmDelivery(deps.Orders, logg))
				r.Get("/cash-in-hand", controllers.CashInHand(deps.Settlement, logg))
				r.Route("/deposits", func(r chi.Router) {
					r.With(middleware.RateLimit(depositPolicy, limiterStore, logg)).
						Post("/", controllers.CreateDepositRequest(deps.Settlement, logg))
					r.Get("/", controllers.ListDepositRequests(deps.Settlement, logg))
				})
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin.String(), logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/deposits", func(r chi.Router) {
			r.Get("/", controllers.AdminListPendingDeposits(deps.Settlement, logg))
			r.Post("/{requestId}/resolve", controllers.AdminResolveDeposit(deps.Settlement, logg))
		})
		r.Post("/orders/{orderId}/cancel", controllers.AdminCancelOrder(deps.Orders, logg))
		r.Post("/notifications/broadcast", controllers.AdminBroadcastPromo(deps.Notifications, logg))
	})

	return r
}
