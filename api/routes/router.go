package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iwanyu/marketplace-backend/api/controllers"
	admincontrollers "github.com/iwanyu/marketplace-backend/api/controllers/admin"
	cartcontrollers "github.com/iwanyu/marketplace-backend/api/controllers/cart"
	ordercontrollers "github.com/iwanyu/marketplace-backend/api/controllers/orders"
	paymentcontrollers "github.com/iwanyu/marketplace-backend/api/controllers/payments"
	vendorcontrollers "github.com/iwanyu/marketplace-backend/api/controllers/vendors"
	"github.com/iwanyu/marketplace-backend/api/middleware"
	"github.com/iwanyu/marketplace-backend/internal/admin"
	"github.com/iwanyu/marketplace-backend/internal/auth"
	"github.com/iwanyu/marketplace-backend/internal/cart"
	"github.com/iwanyu/marketplace-backend/internal/catalog"
	"github.com/iwanyu/marketplace-backend/internal/orders"
	"github.com/iwanyu/marketplace-backend/internal/payments"
	product "github.com/iwanyu/marketplace-backend/internal/products"
	"github.com/iwanyu/marketplace-backend/internal/vendors"
	"github.com/iwanyu/marketplace-backend/pkg/auth/session"
	"github.com/iwanyu/marketplace-backend/pkg/config"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
	"github.com/iwanyu/marketplace-backend/pkg/logger"
	"github.com/iwanyu/marketplace-backend/pkg/metrics"
	"github.com/iwanyu/marketplace-backend/pkg/redis"
)

// Services bundles the domain services the HTTP surface dispatches to.
type Services struct {
	Auth     auth.Service
	Catalog  catalog.Service
	Products product.Service
	Cart     cart.Service
	Orders   orders.Service
	Payments payments.Service
	Vendors  vendors.Service
	Admin    admin.Service
}

// Infra carries the shared clients used by middleware and health checks.
type Infra struct {
	DB       controllers.Pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker
	Metrics  *metrics.HTTPMetrics
	Gatherer prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.CORS),
		middleware.Logging(logg),
		middleware.Metrics(infra.Metrics),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	deps := map[string]controllers.Pinger{"database": infra.DB}
	requireAuth := middleware.Auth(cfg.JWT, infra.Sessions, logg)
	registerLimit, loginLimit, apiLimit := passthrough, passthrough, passthrough
	idempotent, idempotentCritical := passthrough, passthrough
	if infra.Redis != nil {
		deps["redis"] = infra.Redis
		registerLimit = middleware.AuthRateLimit(registerPolicy, infra.Redis, logg)
		loginLimit = middleware.AuthRateLimit(loginPolicy, infra.Redis, logg)
		apiLimit = middleware.RateLimit(infra.Redis, cfg.RateLimit.Requests, cfg.RateLimit.Window, logg)
		idempotent = middleware.Idempotency(infra.Redis, middleware.IdempotencyTTLDefault, logg)
		idempotentCritical = middleware.Idempotency(infra.Redis, middleware.IdempotencyTTLCritical, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})
	if infra.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(infra.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(registerLimit).Post("/register", controllers.AuthRegister(svc.Auth, logg))
			r.With(loginLimit).Post("/login", controllers.AuthLogin(svc.Auth, logg))
			r.With(requireAuth).Post("/logout", controllers.AuthLogout(svc.Auth, logg))
			r.With(requireAuth).Get("/me", controllers.AuthMe(svc.Auth, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(apiLimit)
			r.Get("/products", controllers.CatalogListProducts(svc.Catalog, logg))
			r.Get("/products/{id}", controllers.CatalogGetProduct(svc.Catalog, logg))
			r.Get("/categories", controllers.CatalogListCategories(svc.Catalog, logg))
			r.Get("/categories/{slug}", controllers.CatalogGetCategory(svc.Catalog, logg))
		})

		// Authenticated by signature, not by bearer token.
		r.Post("/payments/webhook/flutterwave", paymentcontrollers.FlutterwaveWebhook(svc.Payments, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(apiLimit)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(svc.Cart, logg))
				r.Post("/", cartcontrollers.CartAdd(svc.Cart, logg))
				r.Delete("/", cartcontrollers.CartClear(svc.Cart, logg))
				r.Get("/count", cartcontrollers.CartCount(svc.Cart, logg))
				r.Put("/{itemId}", cartcontrollers.CartUpdate(svc.Cart, logg))
				r.Delete("/{itemId}", cartcontrollers.CartRemove(svc.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(svc.Orders, logg))
				r.With(idempotentCritical).Post("/", ordercontrollers.Create(svc.Orders, logg))
				r.Get("/{id}", ordercontrollers.Detail(svc.Orders, logg))
				r.With(idempotentCritical).Patch("/{id}/cancel", ordercontrollers.Cancel(svc.Orders, logg))
				r.Get("/{id}/tracking", ordercontrollers.Tracking(svc.Orders, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.With(idempotent).Post("/initialize", paymentcontrollers.Initialize(svc.Payments, logg))
				r.Get("/verify/{transactionId}", paymentcontrollers.Verify(svc.Payments, logg))
				r.Get("/status/{orderId}", paymentcontrollers.Status(svc.Payments, logg))
				r.With(idempotentCritical).Post("/retry/{orderId}", paymentcontrollers.Retry(svc.Payments, logg))
			})

			r.Route("/vendors", func(r chi.Router) {
				r.With(idempotent).Post("/apply", vendorcontrollers.Apply(svc.Vendors, logg))
				r.Get("/me", vendorcontrollers.Me(svc.Vendors, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, enums.UserRoleVendor, enums.UserRoleAdmin))
					r.Use(middleware.VendorContext(svc.Vendors, logg))
					r.Get("/products", vendorcontrollers.ListProducts(svc.Products, logg))
					r.Post("/products", vendorcontrollers.CreateProduct(svc.Products, logg))
					r.Put("/products/{id}", vendorcontrollers.UpdateProduct(svc.Products, logg))
					r.Patch("/products/{id}/status", vendorcontrollers.SetProductStatus(svc.Products, logg))
					r.Post("/products/{id}/variants", vendorcontrollers.AddVariant(svc.Products, logg))
					r.Get("/orders", vendorcontrollers.ListOrderItems(svc.Orders, logg))
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
				r.Get("/dashboard", admincontrollers.Dashboard(svc.Admin, logg))
				r.Get("/vendors", admincontrollers.ListVendors(svc.Vendors, logg))
				r.Patch("/vendors/{id}/status", admincontrollers.SetVendorStatus(svc.Vendors, logg))
				r.Get("/products", admincontrollers.ListProducts(svc.Products, logg))
				r.Patch("/products/{id}/status", admincontrollers.SetProductStatus(svc.Products, logg))
				r.Get("/orders", admincontrollers.ListOrders(svc.Orders, logg))
				r.Patch("/orders/{id}/status", admincontrollers.UpdateOrderStatus(svc.Orders, logg))
				r.Post("/categories", admincontrollers.CreateCategory(svc.Catalog, logg))
			})
		})
	})

	return r
}

func passthrough(next http.Handler) http.Handler { return next }
