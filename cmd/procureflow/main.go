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

	"github.com/procureflow/procureflow/internal/admin"
	"github.com/procureflow/procureflow/internal/app"
	"github.com/procureflow/procureflow/internal/audit"
	"github.com/procureflow/procureflow/internal/auth"
	"github.com/procureflow/procureflow/internal/observability"
	"github.com/procureflow/procureflow/internal/platform/cache"
	"github.com/procureflow/procureflow/internal/platform/db"
	"github.com/procureflow/procureflow/internal/purchasing"
	"github.com/procureflow/procureflow/internal/purchasing/export"
	"github.com/procureflow/procureflow/internal/rbac"
	"github.com/procureflow/procureflow/internal/shared"
	"github.com/procureflow/procureflow/internal/suppliers"
	"github.com/procureflow/procureflow/internal/users"
	"github.com/procureflow/procureflow/internal/view"
	"github.com/procureflow/procureflow/jobs"
)

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
	loc, _ := cfg.Location()
	policy, _ := cfg.PricingPolicy()

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "procureflow_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	rbacService := rbac.NewService(nil)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	authService := auth.NewService(auth.NewRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	userService := users.NewService(users.NewRepository(dbpool))
	supplierService := suppliers.NewService(suppliers.NewRepository(dbpool))

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metricsCache := cache.NewJSONCache(redisClient, "purchase_order_metrics", cfg.MetricsCacheTTL)
	poMetrics := metrics.PurchaseOrders()
	purchasingService := purchasing.NewService(
		purchasing.NewRepository(dbpool),
		supplierService,
		userService,
		purchasing.ServiceConfig{
			Policy:   policy,
			Location: loc,
			Logger:   logger,
			Cache:    metricsCache,
			Failures: poMetrics,
		},
		purchasing.AuditListener{Audit: shared.NewAuditLogger(dbpool)},
		purchasing.CacheListener{Cache: metricsCache},
		poMetrics,
		jobClient,
	)
	purchasingHandler := purchasing.NewHandler(logger, purchasingService, templates, csrfManager, sessionManager, rbacMiddleware, purchasing.HandlerOptions{
		Suppliers:   supplierService,
		Documents:   export.NewPDFRenderer(cfg.CompanyName, cfg.Currency),
		Idempotency: shared.NewIdempotencyStore(dbpool),
	})

	adminHandler := admin.NewHandler(logger,
		admin.NewService(admin.NewRepository(dbpool), purchasingService),
		rbacMiddleware,
		users.NewHandler(logger, userService, rbacMiddleware),
	).WithAudit(audit.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool))))

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Templates:          templates,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		PurchasingHandler:  purchasingHandler,
		SuppliersHandler:   suppliers.NewHandler(logger, supplierService, rbacMiddleware),
		AdminHandler:       adminHandler,
		PermissionsHandler: rbac.NewPermissionsHandler(rbacService, rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
		Database:           dbpool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
