package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/martincervantes/procurehub-backend/api/controllers"
	"github.com/martincervantes/procurehub-backend/api/middleware"
	"github.com/martincervantes/procurehub-backend/internal/auth"
	"github.com/martincervantes/procurehub-backend/internal/downloads"
	products "github.com/martincervantes/procurehub-backend/internal/products"
	"github.com/martincervantes/procurehub-backend/internal/purchaseorders"
	"github.com/martincervantes/procurehub-backend/internal/queue"
	"github.com/martincervantes/procurehub-backend/internal/snapshots"
	"github.com/martincervantes/procurehub-backend/internal/users"
	"github.com/martincervantes/procurehub-backend/internal/vendors"
	"github.com/martincervantes/procurehub-backend/pkg/auth/session"
	"github.com/martincervantes/procurehub-backend/pkg/config"
	"github.com/martincervantes/procurehub-backend/pkg/db"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
	"github.com/martincervantes/procurehub-backend/pkg/metrics"
	"github.com/martincervantes/procurehub-backend/pkg/redis"
)

// Deps bundles everything the router mounts. The metrics gatherer is
// optional; when nil the /metrics endpoint is not exposed.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	DBPing    db.Pinger
	Redis     *redis.Client
	Sessions  session.Checker
	Metrics   *metrics.HTTPMetrics
	Gatherer  prometheus.Gatherer
	Snapshots *snapshots.Service

	Auth           auth.Service
	Products       products.Service
	Vendors        vendors.Service
	Queue          queue.Service
	PurchaseOrders purchaseorders.Service
	Downloads      downloads.Service
	Users          users.Service
}

// NewRouter builds the full API surface: public auth and health endpoints,
// then the role-gated resource groups. Read endpoints need viewer, catalog
// and queue mutations need manager, and user management plus purchase order
// deletion need admin.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.CORS),
		middleware.Metrics(deps.Metrics),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	var rateStore middleware.RateLimiterStore
	if deps.Redis != nil {
		rateStore = deps.Redis
	}
	cache := snapshotCache(deps.Snapshots)

	r.Get("/api/v1/healthz", controllers.Healthz(deps.DBPing, redisPinger(deps.Redis)))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).
			Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleViewer, logg))
			r.Get("/products", controllers.ProductList(deps.Products, cache, logg))
			r.Get("/products/{ref}", controllers.ProductGet(deps.Products, logg))
			r.Get("/vendors", controllers.VendorList(deps.Vendors, cache, logg))
			r.Get("/vendors/{ref}", controllers.VendorGet(deps.Vendors, logg))
			r.Get("/queue", controllers.QueueList(deps.Queue, logg))
			r.Get("/purchase-orders", controllers.PurchaseOrderList(deps.PurchaseOrders, cache, logg))
			r.Get("/purchase-orders/{ref}", controllers.PurchaseOrderGet(deps.PurchaseOrders, logg))
			r.Get("/downloads", controllers.DownloadList(deps.Downloads, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleManager, logg))

			r.Post("/products", controllers.ProductCreate(deps.Products, logg))
			r.Put("/products/{ref}", controllers.ProductUpdate(deps.Products, logg))
			r.Delete("/products/{ref}", controllers.ProductDelete(deps.Products, logg))
			r.Post("/products/bulk-delete", controllers.ProductBulkDelete(deps.Products, logg))

			r.Post("/vendors", controllers.VendorCreate(deps.Vendors, logg))
			r.Post("/vendors/import", controllers.VendorImport(deps.Vendors, logg))
			r.Put("/vendors/{ref}", controllers.VendorUpdate(deps.Vendors, logg))
			r.Delete("/vendors/{ref}", controllers.VendorDelete(deps.Vendors, logg))
			r.Post("/vendors/bulk-delete", controllers.VendorBulkDelete(deps.Vendors, logg))

			r.Post("/queue/items", controllers.QueueAdd(deps.Queue, logg))
			r.Post("/queue/items/batch", controllers.QueueAddBatch(deps.Queue, logg))
			r.Delete("/queue/items/{ref}", controllers.QueueRemove(deps.Queue, logg))
			r.Delete("/queue", controllers.QueueClear(deps.Queue, logg))

			r.Post("/purchase-orders/generate", controllers.PurchaseOrderGenerate(deps.PurchaseOrders, logg))
			r.Post("/purchase-orders/{ref}/approve", controllers.PurchaseOrderApprove(deps.PurchaseOrders, logg))
			r.Post("/purchase-orders/{ref}/reject", controllers.PurchaseOrderReject(deps.PurchaseOrders, logg))
			r.Post("/purchase-orders/bulk-approve", controllers.PurchaseOrderBulkApprove(deps.PurchaseOrders, logg))
			r.Post("/purchase-orders/bulk-reject", controllers.PurchaseOrderBulkReject(deps.PurchaseOrders, logg))
			r.Post("/purchase-orders/{ref}/download", controllers.PurchaseOrderDownload(deps.PurchaseOrders, logg))
			r.Post("/purchase-orders/{ref}/send", controllers.PurchaseOrderSend(deps.PurchaseOrders, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
			r.Delete("/purchase-orders/{ref}", controllers.PurchaseOrderDelete(deps.PurchaseOrders, logg))
			r.Post("/users", controllers.UserCreate(deps.Users, logg))
			r.Get("/users", controllers.UserList(deps.Users, logg))
		})
	})

	return r
}

// redisPinger avoids handing the health check a typed-nil interface when the
// redis client is absent.
func redisPinger(client *redis.Client) db.Pinger {
	if client == nil {
		return nil
	}
	return client
}

// snapshotCache avoids handing the list handlers a typed-nil interface when
// the snapshot service is absent.
func snapshotCache(svc *snapshots.Service) controllers.SnapshotReader {
	if svc == nil {
		return nil
	}
	return svc
}
