package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/shopflow-backend/api/controllers"
	"github.com/angelmondragon/shopflow-backend/api/middleware"
	"github.com/angelmondragon/shopflow-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/shopflow-backend/internal/checkout"
	"github.com/angelmondragon/shopflow-backend/internal/identity"
	"github.com/angelmondragon/shopflow-backend/internal/notifications"
	"github.com/angelmondragon/shopflow-backend/internal/orders"
	"github.com/angelmondragon/shopflow-backend/pkg/config"
	"github.com/angelmondragon/shopflow-backend/pkg/db"
	"github.com/angelmondragon/shopflow-backend/pkg/logger"
	"github.com/angelmondragon/shopflow-backend/pkg/redis"
)

// Store is the redis surface the HTTP layer needs: health, idempotency
// records and the cart rate limiter.
type Store interface {
	redis.Pinger
	redis.IdempotencyStore
	middleware.WindowLimiter
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	store Store,
	gatherer prometheus.Gatherer,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	cartPolicy := middleware.RateLimitPolicy{
		Name:   "cart",
		Window: cfg.RateLimit.CartWindow,
		Limit:  cfg.RateLimit.CartLimit,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, logg, map[string]controllers.Pinger{
			"postgres": dbP,
			"redis":    store,
		}))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Identity(identity.NewResolver(cfg.JWT), logg))
		r.Use(middleware.Idempotency(store, logg))

		r.Route("/v1/cart", func(r chi.Router) {
			r.Use(middleware.RateLimit(cartPolicy, store, logg))
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Patch("/items", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(cartService, logg))
			r.With(middleware.RequireUser(logg)).Post("/merge", controllers.CartMerge(cartService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(logg))
			r.Post("/v1/checkout", controllers.Checkout(checkoutService, logg))

			r.Route("/v1/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(ordersService, logg))
				r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
				r.Patch("/{orderId}/notes", controllers.OrderUpdateNotes(ordersService, logg))
				r.Post("/{orderId}/cancel", controllers.OrderCancel(ordersService, logg))
				r.Post("/{orderId}/pay", controllers.OrderPay(ordersService, logg))
				r.Post("/{orderId}/pay/crypto", controllers.OrderPayCrypto(ordersService, logg))
			})

			r.Route("/v1/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(notificationsService, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
			})
		})

		r.Route("/admin/v1/orders", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))
			r.Post("/{orderId}/refund", controllers.AdminRefundOrder(ordersService, logg))
			r.Post("/{orderId}/status", controllers.AdminAdvanceOrder(ordersService, logg))
		})
	})

	return r
}
