package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bookhaven/storefront-backend/api/controllers"
	webhookcontrollers "github.com/bookhaven/storefront-backend/api/controllers/webhooks"
	"github.com/bookhaven/storefront-backend/api/middleware"
	cartsvc "github.com/bookhaven/storefront-backend/internal/cart"
	checkoutsvc "github.com/bookhaven/storefront-backend/internal/checkout"
	"github.com/bookhaven/storefront-backend/internal/notifications"
	ordersvc "github.com/bookhaven/storefront-backend/internal/orders"
	verificationsvc "github.com/bookhaven/storefront-backend/internal/verification"
	paystackwebhook "github.com/bookhaven/storefront-backend/internal/webhooks/paystack"
	"github.com/bookhaven/storefront-backend/pkg/config"
	"github.com/bookhaven/storefront-backend/pkg/db"
	"github.com/bookhaven/storefront-backend/pkg/logger"
	"github.com/bookhaven/storefront-backend/pkg/paystack"
	"github.com/bookhaven/storefront-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs. Optional pieces (verify
// service, webhook wiring, alert store, metrics registry) may be nil; the
// matching routes degrade or disappear.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              *db.Client
	Redis           *redis.Client
	CartService     cartsvc.Service
	CheckoutService checkoutsvc.Service
	VerifyService   verificationsvc.Service
	OrdersStore     ordersvc.Store
	AlertStore      notifications.AlertStore
	PaystackClient  *paystack.Client
	WebhookService  *paystackwebhook.Service
	Registry        *prometheus.Registry
}

type pinger interface {
	Ping(ctx context.Context) error
}

func NewRouter(d Deps) http.Handler {
	// Typed nils must not reach the readiness probe as non-nil interfaces.
	var dbP, redisP pinger
	if d.DB != nil {
		dbP = d.DB
	}
	if d.Redis != nil {
		redisP = d.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(d.Logger),
		middleware.RequestID(d.Logger),
		middleware.Logging(d.Logger),
		middleware.CORS(d.Config.App.CORSOrigins...),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(d.Config))
		r.Get("/ready", controllers.HealthReady(d.Config, d.Logger, dbP, redisP))
	})

	if d.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(d.CartService, d.Logger))
			r.Post("/items", controllers.CartAdd(d.CartService, d.Logger))
			r.Post("/items/increase", controllers.CartIncrease(d.CartService, d.Logger))
			r.Post("/items/decrease", controllers.CartDecrease(d.CartService, d.Logger))
			r.Post("/items/remove", controllers.CartRemove(d.CartService, d.Logger))
			r.Delete("/", controllers.CartClear(d.CartService, d.Logger))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", controllers.CheckoutBegin(d.CheckoutService, d.Logger))
			r.Post("/complete", controllers.CheckoutComplete(d.CheckoutService, d.Logger))
			r.Post("/abandon", controllers.CheckoutAbandon(d.CheckoutService, d.Logger))
		})

		r.Get("/orders/{orderId}", controllers.OrderDetail(d.OrdersStore, d.Logger))

		if d.VerifyService != nil {
			r.Post("/payments/verify", controllers.PaymentVerify(d.VerifyService, d.Logger))
		}

		if d.WebhookService != nil && d.PaystackClient != nil {
			r.Post("/webhooks/paystack", webhookcontrollers.PaystackWebhook(d.WebhookService, d.PaystackClient, d.Logger))
		}

		r.Route("/admin/alerts", func(r chi.Router) {
			r.Get("/", controllers.BackofficeAlertsList(d.AlertStore, d.Logger))
			r.Post("/{alertId}/read", controllers.BackofficeAlertMarkRead(d.AlertStore, d.Logger))
		})
	})

	return r
}
