package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shoplinehq/shopline-backend/api/controllers"
	cartcontrollers "github.com/shoplinehq/shopline-backend/api/controllers/cart"
	ordercontrollers "github.com/shoplinehq/shopline-backend/api/controllers/orders"
	webhookcontrollers "github.com/shoplinehq/shopline-backend/api/controllers/webhooks"
	"github.com/shoplinehq/shopline-backend/api/middleware"
	cartsvc "github.com/shoplinehq/shopline-backend/internal/cart"
	"github.com/shoplinehq/shopline-backend/internal/catalog"
	checkoutsvc "github.com/shoplinehq/shopline-backend/internal/checkout"
	ordersvc "github.com/shoplinehq/shopline-backend/internal/orders"
	"github.com/shoplinehq/shopline-backend/internal/payments"
	"github.com/shoplinehq/shopline-backend/internal/recommender"
	"github.com/shoplinehq/shopline-backend/pkg/config"
	"github.com/shoplinehq/shopline-backend/pkg/db"
	"github.com/shoplinehq/shopline-backend/pkg/logger"
	"github.com/shoplinehq/shopline-backend/pkg/metrics"
	"github.com/shoplinehq/shopline-backend/pkg/redis"
	"github.com/shoplinehq/shopline-backend/pkg/stripe"
)

// RouterParams collects everything the HTTP surface depends on.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          *db.Client
	Redis       *redis.Client
	HTTPMetrics *metrics.HTTPMetrics

	Catalog     catalog.Service
	Cart        cartsvc.Service
	Orders      ordersvc.Service
	Checkout    checkoutsvc.Service
	Recommender *recommender.Engine

	StripeClient   *stripe.Client
	PaymentWebhook *payments.Service
}

// NewRouter assembles the storefront API.
func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.HTTPMetrics),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DB, p.Redis, logg))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.PaymentWebhook, p.StripeClient, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ListProducts(p.Catalog, logg))
		r.Get("/products/{productID}", controllers.GetProduct(p.Catalog, p.Recommender, logg))
		r.Get("/categories", controllers.ListCategories(p.Catalog, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(cfg.Session, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.FetchCart(p.Cart, p.Recommender, logg))
				r.Delete("/", cartcontrollers.ClearCart(p.Cart, logg))
				r.Post("/items", cartcontrollers.AddItem(p.Cart, logg))
				r.Delete("/items/{productID}", cartcontrollers.RemoveItem(p.Cart, logg))
				r.Post("/coupon", cartcontrollers.ApplyCoupon(p.Cart, logg))
				r.Delete("/coupon", cartcontrollers.RemoveCoupon(p.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", ordercontrollers.CreateOrder(p.Orders, logg))
				r.Get("/{orderID}", ordercontrollers.GetOrder(p.Orders, logg))
				r.Post("/{orderID}/payment-session", ordercontrollers.CreatePaymentSession(p.Checkout, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminToken(cfg.Admin.Token, logg))

		r.Post("/products", controllers.AdminCreateProduct(p.Catalog, logg))
		r.Put("/products/{productID}", controllers.AdminUpdateProduct(p.Catalog, logg))
		r.Delete("/products/{productID}", controllers.AdminDeleteProduct(p.Catalog, logg))
		r.Get("/orders", controllers.AdminListOrders(p.Orders, logg))
		r.Get("/orders/{orderID}", controllers.AdminGetOrder(p.Orders, logg))
		r.Delete("/recommendations", controllers.AdminClearRecommendations(p.Recommender, logg))
	})

	return r
}
