package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appsettlement "github.com/pharmalink/settlement/internal/application/settlement"
	"github.com/pharmalink/settlement/internal/domain/settlement"
	"github.com/pharmalink/settlement/internal/infrastructure/cache"
	"github.com/pharmalink/settlement/internal/infrastructure/config"
	"github.com/pharmalink/settlement/internal/infrastructure/event"
	"github.com/pharmalink/settlement/internal/infrastructure/logger"
	"github.com/pharmalink/settlement/internal/infrastructure/payment"
	"github.com/pharmalink/settlement/internal/infrastructure/persistence"
	"github.com/pharmalink/settlement/internal/infrastructure/scheduler"
	"github.com/pharmalink/settlement/internal/infrastructure/telemetry"
	"github.com/pharmalink/settlement/internal/interfaces/http/handler"
	"github.com/pharmalink/settlement/internal/interfaces/http/middleware"
	"github.com/pharmalink/settlement/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync() //nolint:errcheck

	zapLogger.Info("starting settlement engine",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database
	gormLogger := logger.NewGormLogger(zapLogger, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	// The sqlite development backend is migrated in-process; postgres
	// deployments run the SQL migrations through cmd/migrate.
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			zapLogger.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	// Repositories
	scheduleRepo := persistence.NewGormScheduleRepository(db.DB)
	alertRepo := persistence.NewGormAlertRepository(db.DB)
	txRepo := persistence.NewGormTransactionRepository(db.DB)

	// Event bus
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventBus := event.NewInMemoryEventBus(zapLogger)
	if err := eventBus.Start(ctx); err != nil {
		zapLogger.Fatal("failed to start event bus", zap.Error(err))
	}

	// Telemetry
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to initialize telemetry", zap.Error(err))
	}

	var settlementMetrics *telemetry.SettlementMetrics
	if meterProvider.IsEnabled() {
		settlementMetrics, err = telemetry.NewSettlementMetrics(telemetry.SettlementMetricsConfig{
			Meter:           meterProvider.Meter("settlement"),
			Logger:          zapLogger,
			BacklogProvider: telemetry.NewRepositoryBacklogProvider(scheduleRepo, alertRepo),
		})
		if err != nil {
			zapLogger.Fatal("failed to initialize settlement metrics", zap.Error(err))
		}
		eventBus.Subscribe(settlementMetrics, settlementMetrics.EventTypes()...)
		settlementMetrics.StartPeriodicCollection(ctx, cfg.Telemetry.ExportInterval)
	}

	// Application services
	alertPolicy := settlement.AlertPolicy{
		ImminentDays:        cfg.Alerts.ImminentDays,
		ThresholdMultiplier: decimal.NewFromFloat(cfg.Alerts.ThresholdMultiplier),
	}

	scheduleService := appsettlement.NewScheduleService(scheduleRepo, eventBus)
	alertService := appsettlement.NewAlertService(alertRepo, scheduleRepo, eventBus, alertPolicy, zapLogger)
	metricsService := appsettlement.NewMetricsService(scheduleRepo, alertRepo, txRepo)
	analyticsService := appsettlement.NewAnalyticsService(txRepo)

	idempotencyStore, err := newIdempotencyStore(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to initialize idempotency store", zap.Error(err))
	}

	rail := payment.NewSimulatedRail(payment.DefaultSimulatedRailConfig())

	workerPool := scheduler.NewResolutionWorkerPool(zapLogger, scheduler.ResolutionWorkerConfig{
		Workers:    cfg.Processor.Workers,
		QueueSize:  cfg.Processor.QueueSize,
		JobTimeout: cfg.Processor.ResolveTimeout,
	})

	transactionService := appsettlement.NewTransactionService(
		scheduleRepo,
		txRepo,
		alertService,
		rail,
		eventBus,
		zapLogger,
		appsettlement.WithIdempotencyStore(idempotencyStore, cfg.Processor.IdempotencyTTL),
		appsettlement.WithResolutionEnqueuer(workerPool),
	)
	workerPool.Bind(transactionService)
	if err := workerPool.Start(ctx); err != nil {
		zapLogger.Fatal("failed to start resolution workers", zap.Error(err))
	}

	// Pick up transactions a previous run left unresolved.
	if _, err := transactionService.RecoverInFlight(ctx); err != nil {
		zapLogger.Error("in-flight transaction recovery failed", zap.Error(err))
	}

	// Background alert evaluation
	evaluator := scheduler.NewAlertEvaluator(alertService, zapLogger, scheduler.AlertEvaluatorConfig{
		Enabled:     cfg.Alerts.EvaluationEnabled,
		Interval:    cfg.Alerts.EvaluationInterval,
		PassTimeout: 2 * time.Minute,
	})
	if err := evaluator.Start(ctx); err != nil {
		zapLogger.Fatal("failed to start alert evaluator", zap.Error(err))
	}

	// HTTP server
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		zapLogger.Fatal("failed to set trusted proxies", zap.Error(err))
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(zapLogger))
	engine.Use(logger.GinMiddleware(zapLogger))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	systemHandler := handler.NewSystemHandler(db)

	router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithHealthz(systemHandler.Healthz),
	).
		Register(handler.NewScheduleHandler(scheduleService, transactionService)).
		Register(handler.NewAlertHandler(alertService)).
		Register(handler.NewTransactionHandler(transactionService)).
		Register(handler.NewMetricsHandler(metricsService, analyticsService)).
		Register(systemHandler).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		zapLogger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("http server shutdown failed", zap.Error(err))
	}
	if err := evaluator.Stop(shutdownCtx); err != nil {
		zapLogger.Error("alert evaluator shutdown failed", zap.Error(err))
	}
	if err := workerPool.Stop(shutdownCtx); err != nil {
		zapLogger.Error("resolution workers shutdown failed", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		zapLogger.Error("event bus shutdown failed", zap.Error(err))
	}
	if settlementMetrics != nil {
		settlementMetrics.Stop()
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("telemetry shutdown failed", zap.Error(err))
	}

	zapLogger.Info("settlement engine stopped")
}

// newIdempotencyStore picks the idempotency backend: Redis when enabled,
// otherwise an in-process store that does not survive restarts.
func newIdempotencyStore(cfg *config.Config, zapLogger *zap.Logger) (appsettlement.IdempotencyStore, error) {
	if !cfg.Redis.Enabled {
		zapLogger.Info("using in-memory idempotency store")
		return cache.NewInMemoryIdempotencyStore(), nil
	}

	store, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	zapLogger.Info("using redis idempotency store", zap.String("host", cfg.Redis.Host))
	return store, nil
}
