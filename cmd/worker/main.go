package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/martincervantes/procurehub-backend/api"
	"github.com/martincervantes/procurehub-backend/internal/cron"
	"github.com/martincervantes/procurehub-backend/internal/downloads"
	products "github.com/martincervantes/procurehub-backend/internal/products"
	"github.com/martincervantes/procurehub-backend/internal/purchaseorders"
	"github.com/martincervantes/procurehub-backend/internal/queue"
	"github.com/martincervantes/procurehub-backend/internal/refs"
	"github.com/martincervantes/procurehub-backend/internal/snapshots"
	vendorsvc "github.com/martincervantes/procurehub-backend/internal/vendors"
	"github.com/martincervantes/procurehub-backend/pkg/config"
	"github.com/martincervantes/procurehub-backend/pkg/db"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
	"github.com/martincervantes/procurehub-backend/pkg/metrics"
	"github.com/martincervantes/procurehub-backend/pkg/pagination"
	"github.com/martincervantes/procurehub-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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

	snapshotService, err := snapshots.NewService(redisClient, logg, 0)
	if err != nil {
		logg.Error(ctx, "failed to create snapshot cache", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	productRepo := products.NewRepository(gormDB)
	allocator := refs.NewAllocator(gormDB)
	resolver := refs.NewResolver(gormDB)

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

	vendorService, err := vendorsvc.NewService(vendorsvc.NewRepository(gormDB), dbClient, allocator, resolver, snapshotService, logg)
	if err != nil {
		logg.Error(ctx, "failed to create vendor service", err)
		os.Exit(1)
	}

	downloadService, err := downloads.NewService(downloads.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(ctx, "failed to create downloads service", err)
		os.Exit(1)
	}

	orderService, err := purchaseorders.NewService(
		purchaseorders.NewRepository(gormDB), productRepo, queueService, resolver, dbClient, downloadService, snapshotService, logg)
	if err != nil {
		logg.Error(ctx, "failed to create purchase order service", err)
		os.Exit(1)
	}

	fullPage := pagination.Params{Limit: pagination.MaxLimit}
	snapshotService.RegisterLoader(enums.RecordKindProducts, func(ctx context.Context) (any, error) {
		return productService.List(ctx, products.ListProductsInput{Pagination: fullPage})
	})
	snapshotService.RegisterLoader(enums.RecordKindVendors, func(ctx context.Context) (any, error) {
		return vendorService.List(ctx, vendorsvc.ListVendorsInput{Pagination: fullPage})
	})
	snapshotService.RegisterLoader(enums.RecordKindPurchaseOrders, func(ctx context.Context) (any, error) {
		return orderService.List(ctx, purchaseorders.ListInput{Pagination: fullPage})
	})

	reconcileJob, err := cron.NewQueueReconcileJob(queueService, logg)
	if err != nil {
		logg.Error(ctx, "failed to create queue reconcile job", err)
		os.Exit(1)
	}
	refreshJob, err := cron.NewSnapshotRefreshJob(snapshotService)
	if err != nil {
		logg.Error(ctx, "failed to create snapshot refresh job", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cronMetrics := metrics.NewCronJobMetrics(registry, cfg.Metrics.Namespace)

	cronService, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(reconcileJob, refreshJob),
		Metrics:  cronMetrics,
		Interval: cfg.Cron.TickInterval,
		Locks: func(job string) cron.Lock {
			lock, err := cron.NewRedisLock(redisClient, redisClient.CronLockKey(job), cfg.Cron.LockTTL)
			if err != nil {
				return nil
			}
			return lock
		},
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	listener, err := newChangeFeedListener(redisClient, snapshotService, logg)
	if err != nil {
		logg.Error(ctx, "failed to create change feed listener", err)
		os.Exit(1)
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsServer := api.NewServer(":"+cfg.Metrics.Port, metricsMux, logg)

	logg.Info(logg.WithField(ctx, "env", cfg.App.Env), "starting worker")

	errCh := make(chan error, 3)
	go func() { errCh <- cronService.Run(ctx) }()
	go func() { errCh <- listener.Run(ctx) }()
	go func() { errCh <- metricsServer.Start(ctx) }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "worker component stopped unexpectedly", err)
		}
		stop()
	}

	if err := metricsServer.Shutdown(context.Background()); err != nil {
		logg.Error(context.Background(), "metrics server shutdown failed", err)
	}
	logg.Info(context.Background(), "worker shut down")
}
