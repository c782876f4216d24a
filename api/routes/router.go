package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/address"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/categories"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/ledger"
	"github.com/angelmondragon/storefront/internal/orders"
	product "github.com/angelmondragon/storefront/internal/products"
	"github.com/angelmondragon/storefront/internal/reviews"
	pkgAuth "github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/auth/session"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront/pkg/redis"
)

// redisStore is the slice of the redis client the HTTP layer relies on.
type redisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

type inventoryReporter interface {
	InventoryWorkbook(ctx context.Context, actor pkgAuth.Actor) ([]byte, error)
}

// Services groups the domain services exposed over HTTP.
type Services struct {
	Auth       auth.Service
	Register   auth.RegisterService
	Products   product.Service
	Categories categories.Service
	Reviews    reviews.Service
	Checkout   checkout.Service
	Orders     orders.Service
	Ledger     ledger.Service
	Addresses  address.Service
	Reports    inventoryReporter
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient redisStore,
	sessions session.AccessSessionChecker,
	httpMetrics *metrics.HTTPMetrics,
	gatherer prometheus.Gatherer,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.LoginRateLimitPolicy(cfg.AuthRateLimit)
	registerPolicy := middleware.RegisterRateLimitPolicy(cfg.AuthRateLimit)
	requireAuth := middleware.Auth(cfg.JWT, sessions, logg)
	idempotency := middleware.Idempotency(redisClient, cfg.Checkout.IdempotencyTTL, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisClient,
		}))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svc.Register, svc.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
			r.With(requireAuth).Post("/logout", controllers.AuthLogout(svc.Auth, logg))
		})

		r.Get("/products", controllers.ProductList(svc.Products, logg))
		r.Get("/products/{slug}", controllers.ProductDetail(svc.Products, logg))
		r.Get("/products/{productId}/reviews", controllers.ReviewList(svc.Reviews, logg))
		r.Get("/categories", controllers.CategoryList(svc.Categories, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(idempotency)

			r.Post("/checkout", controllers.Checkout(svc.Checkout, logg))
			r.Post("/products/{productId}/reviews", controllers.ReviewCreate(svc.Reviews, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.MyOrders(svc.Orders, logg))
				r.Get("/{orderId}", controllers.OrderDetail(svc.Orders, logg))
			})

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.AddressList(svc.Addresses, logg))
				r.Post("/", controllers.AddressCreate(svc.Addresses, logg))
				r.Put("/{addressId}", controllers.AddressUpdate(svc.Addresses, logg))
				r.Delete("/{addressId}", controllers.AddressDelete(svc.Addresses, logg))
				r.Post("/{addressId}/default", controllers.AddressSetDefault(svc.Addresses, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole(enums.RoleAdmin, logg))

		// Routes are registered flat on an inline group so idempotency sees
		// the full route pattern.
		r.Group(func(r chi.Router) {
			r.Use(idempotency)

			r.Get("/orders", controllers.AdminOrders(svc.Orders, logg))
			r.Patch("/orders/{orderId}/status", controllers.AdminUpdateOrderStatus(svc.Orders, logg))

			r.Post("/products", controllers.AdminCreateProduct(svc.Products, logg))
			r.Put("/products/{productId}", controllers.AdminUpdateProduct(svc.Products, logg))
			r.Delete("/products/{productId}", controllers.AdminDeleteProduct(svc.Products, logg))
			r.Post("/products/{productId}/featured", controllers.AdminToggleFeatured(svc.Products, logg))
			r.Get("/products/{productId}/ledger", controllers.AdminProductLedger(svc.Ledger, logg))
			r.Get("/size-grid", controllers.AdminSizeGrid(svc.Products, logg))

			r.Post("/categories", controllers.AdminCategoryCreate(svc.Categories, logg))
			r.Put("/categories/{categoryId}", controllers.AdminCategoryUpdate(svc.Categories, logg))
			r.Delete("/categories/{categoryId}", controllers.AdminCategoryDelete(svc.Categories, logg))

			r.Get("/reports/inventory.xlsx", controllers.AdminInventoryReport(svc.Reports, logg))
		})
	})

	return r
}
