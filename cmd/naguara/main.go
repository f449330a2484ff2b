package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/naguara/naguara-pos/cmd/naguara/cli"
	"github.com/naguara/naguara-pos/internal/app"
	"github.com/naguara/naguara-pos/internal/auth"
	"github.com/naguara/naguara-pos/internal/cashclose"
	"github.com/naguara/naguara-pos/internal/fx"
	"github.com/naguara/naguara-pos/internal/inventory"
	"github.com/naguara/naguara-pos/internal/masterdata"
	"github.com/naguara/naguara-pos/internal/observability"
	"github.com/naguara/naguara-pos/internal/platform/cache"
	"github.com/naguara/naguara-pos/internal/platform/db"
	"github.com/naguara/naguara-pos/internal/platform/migrate"
	"github.com/naguara/naguara-pos/internal/procurement"
	"github.com/naguara/naguara-pos/internal/rbac"
	"github.com/naguara/naguara-pos/internal/reports"
	"github.com/naguara/naguara-pos/internal/sales"
	"github.com/naguara/naguara-pos/internal/sales/customers"
	"github.com/naguara/naguara-pos/internal/shared"
	"github.com/naguara/naguara-pos/internal/users"
	"github.com/naguara/naguara-pos/jobs"
)

const usage = `usage:
  naguara                      start the HTTP server
  naguara jobs trigger <name>  enqueue fx:refresh, inventory:low-stock or maintenance:idempotency-cleanup
  naguara jobs stats           print default queue counters`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	if len(os.Args) > 1 {
		if err := runCommand(ctx, cfg, os.Args[1:]); err != nil {
			logger.Error("command failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}
	if err := serve(ctx, stop, cfg, logger); err != nil {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, cfg *app.Config, args []string) error {
	if len(args) < 2 || args[0] != "jobs" {
		return errors.New(usage)
	}
	ops := cli.NewJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer ops.Close()

	switch args[1] {
	case "trigger":
		if len(args) < 3 {
			return errors.New(usage)
		}
		info, err := ops.Trigger(ctx, args[2])
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return nil
	case "stats":
		stats, err := ops.InspectQueue()
		if err != nil {
			return err
		}
		return cli.WriteStats(os.Stdout, stats)
	default:
		return errors.New(usage)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if cfg.DBAutoMigrate {
		sqlDB := migrate.OpenDB(pool)
		err := migrate.Up(ctx, sqlDB)
		_ = sqlDB.Close()
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied")
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	router, closeFn := buildRouter(cfg, loc, logger, pool, redisClient)
	defer closeFn()

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: cfg.AppReadTimeout,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("timezone", loc.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildRouter(cfg *app.Config, loc *time.Location, logger *slog.Logger, pool *pgxpool.Pool, redisClient *redis.Client) (http.Handler, func()) {
	sessionManager := shared.NewSessionManager(redisClient, "naguara_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	locker := shared.NewLocker(redisClient)
	metrics := observability.NewMetrics()

	rbacService := rbac.NewService(rbac.DefaultRoles())
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	authService := auth.NewService(auth.NewRepository(pool))

	fxService := fx.NewService(
		fx.NewRepository(pool),
		fx.NewHTTPProvider(cfg.FXAPIURL, cfg.FXAPIField, cfg.FXTimeout),
		redisClient,
		locker,
		fx.Options{
			CacheTTL:        cfg.FXCacheTTL,
			FloorRate:       cfg.FXFloorRate,
			ChangeThreshold: cfg.FXChangeThreshold,
			FetchTimeout:    cfg.FXTimeout,
		},
		metrics,
		logger,
	)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportService := reports.NewService(reports.NewRepository(pool), reportCache, fxService, loc, logger)

	inventoryService := inventory.NewService(inventory.NewRepository(pool), auditLogger, jobs.LogAlerts{Logger: logger}, logger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService, rbacMiddleware, loc)

	salesService := sales.NewService(sales.NewRepository(pool), fxService, sales.Deps{
		Idempotency: idempotencyStore,
		Cache:       reportCache,
		Metrics:     metrics,
		Audit:       auditLogger,
		Logger:      logger,
	})
	procurementService := procurement.NewService(procurement.NewRepository(pool), auditLogger, reportCache, logger)
	cashCloseService := cashclose.NewService(cashclose.NewRepository(pool), locker, auditLogger, loc, logger)
	usersService := users.NewService(users.NewRepository(pool), auditLogger, bcrypt.DefaultCost, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Metrics:            metrics,
		AuthService:        authService,
		AuthHandler:        auth.NewHandler(logger, authService, sessionManager, csrfManager),
		MasterDataHandler:  masterdata.NewHandler(logger, pool, auditLogger, inventoryHandler, rbacMiddleware),
		CustomersHandler:   customers.NewHandler(logger, customers.NewService(customers.NewRepository(pool)), rbacMiddleware),
		UsersHandler:       users.NewHandler(logger, usersService, rbacMiddleware),
		SalesHandler:       sales.NewHandler(logger, salesService, rbacMiddleware, loc),
		InventoryHandler:   inventoryHandler,
		ProcurementHandler: procurement.NewHandler(logger, procurementService, rbacMiddleware, loc),
		CashCloseHandler:   cashclose.NewHandler(logger, cashCloseService, rbacMiddleware, loc),
		FXHandler:          fx.NewHandler(logger, fxService, rbacMiddleware),
		ReportsHandler:     reports.NewHandler(logger, reportService, rbacMiddleware, loc),
		JobHandler:         jobs.NewHandler(inspector, rbacMiddleware, logger),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacService, rbacMiddleware),
	})

	return router, func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}
}
