package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/naguara/naguara-pos/internal/app"
	"github.com/naguara/naguara-pos/internal/fx"
	"github.com/naguara/naguara-pos/internal/inventory"
	jobmetrics "github.com/naguara/naguara-pos/internal/jobs"
	"github.com/naguara/naguara-pos/internal/observability"
	"github.com/naguara/naguara-pos/internal/platform/cache"
	"github.com/naguara/naguara-pos/internal/platform/db"
	"github.com/naguara/naguara-pos/internal/shared"
	"github.com/naguara/naguara-pos/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	fxService := fx.NewService(
		fx.NewRepository(pool),
		fx.NewHTTPProvider(cfg.FXAPIURL, cfg.FXAPIField, cfg.FXTimeout),
		redisClient,
		shared.NewLocker(redisClient),
		fx.Options{
			CacheTTL:        cfg.FXCacheTTL,
			FloorRate:       cfg.FXFloorRate,
			ChangeThreshold: cfg.FXChangeThreshold,
			FetchTimeout:    cfg.FXTimeout,
		},
		metrics,
		logger,
	)
	inventoryService := inventory.NewService(inventory.NewRepository(pool), nil, jobs.LogAlerts{Logger: logger}, logger)

	fxJob := jobs.NewFXRefreshJob(fxService, logger, jobMetrics)
	lowStockJob := jobs.NewLowStockJob(inventoryService, logger, jobMetrics)
	cleanupJob := jobs.NewIdempotencyCleanupJob(shared.NewIdempotencyStore(pool), logger, jobMetrics)

	cleanupTask, err := jobs.NewIdempotencyCleanupTask(jobs.DefaultIdempotencyRetention)
	if err != nil {
		return err
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword},
		Logger:    logger,
		Location:  loc,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskFXRefresh, Handler: fxJob.Handle},
			{Type: jobs.TaskLowStockScan, Handler: lowStockJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.FXRefreshCron, Task: jobs.NewFXRefreshTask(), Options: []asynq.Option{asynq.MaxRetry(2)}},
			{Spec: "0 * * * *", Task: jobs.NewLowStockScanTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
			{Spec: "30 3 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		return err
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("worker metrics listening", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if _, err := fxService.Refresh(gctx); err != nil && !errors.Is(err, shared.ErrLockBusy) {
			logger.Warn("initial fx refresh", slog.Any("error", err))
		}
		return nil
	})
	return g.Wait()
}
