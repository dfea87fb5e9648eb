package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/martincervantes/procurehub-backend/api"
	"github.com/martincervantes/procurehub-backend/api/routes"
	"github.com/martincervantes/procurehub-backend/internal/auth"
	"github.com/martincervantes/procurehub-backend/internal/downloads"
	products "github.com/martincervantes/procurehub-backend/internal/products"
	"github.com/martincervantes/procurehub-backend/internal/purchaseorders"
	"github.com/martincervantes/procurehub-backend/internal/queue"
	"github.com/martincervantes/procurehub-backend/internal/refs"
	"github.com/martincervantes/procurehub-backend/internal/snapshots"
	"github.com/martincervantes/procurehub-backend/internal/users"
	"github.com/martincervantes/procurehub-backend/internal/vendors"
	"github.com/martincervantes/procurehub-backend/pkg/auth/session"
	"github.com/martincervantes/procurehub-backend/pkg/config"
	"github.com/martincervantes/procurehub-backend/pkg/db"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
	"github.com/martincervantes/procurehub-backend/pkg/metrics"
	"github.com/martincervantes/procurehub-backend/pkg/migrate"
	"github.com/martincervantes/procurehub-backend/pkg/pagination"
	"github.com/martincervantes/procurehub-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	snapshotService, err := snapshots.NewService(redisClient, logg, 0)
	if err != nil {
		logg.Error(ctx, "failed to create snapshot cache", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	productRepo := products.NewRepository(gormDB)
	vendorRepo := vendors.NewRepository(gormDB)
	orderRepo := purchaseorders.NewRepository(gormDB)
	downloadRepo := downloads.NewRepository(gormDB)
	userRepo := users.NewRepository(gormDB)
	allocator := refs.NewAllocator(gormDB)
	resolver := refs.NewResolver(gormDB)

	downloadService, err := downloads.NewService(downloadRepo, logg)
	if err != nil {
		logg.Error(ctx, "failed to create downloads service", err)
		os.Exit(1)
	}

	queueService, err := queue.NewService(redisClient, productRepo, resolver, dbClient, snapshotService, logg)
	if err != nil {
		logg.Error(ctx, "failed to create queue service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(productRepo, dbClient, allocator, resolver, queueService, snapshotService, logg)
	if err != nil {
		logg.Error(ctx, "failed to create product service", err)
		os.Exit(1)
	}

	vendorService, err := vendors.NewService(vendorRepo, dbClient, allocator, resolver, snapshotService, logg)
	if err != nil {
		logg.Error(ctx, "failed to create vendor service", err)
		os.Exit(1)
	}

	orderService, err := purchaseorders.NewService(orderRepo, productRepo, queueService, resolver, dbClient, downloadService, snapshotService, logg)
	if err != nil {
		logg.Error(ctx, "failed to create purchase order service", err)
		os.Exit(1)
	}

	userService, err := users.NewService(userRepo, cfg.Password, logg)
	if err != nil {
		logg.Error(ctx, "failed to create user service", err)
		os.Exit(1)
	}
	if err := userService.SeedAdmin(ctx, cfg.Seed); err != nil {
		logg.Error(ctx, "failed to seed admin account", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	registerSnapshotLoaders(snapshotService, productService, vendorService, orderService)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry, cfg.Metrics.Namespace)

	router := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		DBPing:         dbClient,
		Redis:          redisClient,
		Sessions:       sessionManager,
		Metrics:        httpMetrics,
		Gatherer:       registry,
		Snapshots:      snapshotService,
		Auth:           authService,
		Products:       productService,
		Vendors:        vendorService,
		Queue:          queueService,
		PurchaseOrders: orderService,
		Downloads:      downloadService,
		Users:          userService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	startCtx := logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr})
	logg.Info(startCtx, "starting api server")

	server := api.NewServer(addr, router, logg)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logg.Error(context.Background(), "server shutdown failed", err)
		}
		<-errCh
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}
}

// registerSnapshotLoaders binds the full-page projections served from the
// snapshot cache. Each loader pulls the first page at the maximum page size,
// which covers the list views the dashboard renders.
func registerSnapshotLoaders(
	cache *snapshots.Service,
	productService products.Service,
	vendorService vendors.Service,
	orderService purchaseorders.Service,
) {
	fullPage := pagination.Params{Limit: pagination.MaxLimit}

	cache.RegisterLoader(enums.RecordKindProducts, func(ctx context.Context) (any, error) {
		return productService.List(ctx, products.ListProductsInput{Pagination: fullPage})
	})
	cache.RegisterLoader(enums.RecordKindVendors, func(ctx context.Context) (any, error) {
		return vendorService.List(ctx, vendors.ListVendorsInput{Pagination: fullPage})
	})
	cache.RegisterLoader(enums.RecordKindPurchaseOrders, func(ctx context.Context) (any, error) {
		return orderService.List(ctx, purchaseorders.ListInput{Pagination: fullPage})
	})
}
