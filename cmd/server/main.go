package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/costing/internal/application/costing"
	"github.com/erp/costing/internal/domain/shared/strategy"
	"github.com/erp/costing/internal/infrastructure/cache"
	"github.com/erp/costing/internal/infrastructure/config"
	"github.com/erp/costing/internal/infrastructure/logger"
	"github.com/erp/costing/internal/infrastructure/persistence"
	strategyimpl "github.com/erp/costing/internal/infrastructure/strategy"
	"github.com/erp/costing/internal/infrastructure/telemetry"
	"github.com/erp/costing/internal/interfaces/http/handler"
	"github.com/erp/costing/internal/interfaces/http/middleware"
	"github.com/erp/costing/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Costing Engine API
//	@version		1.0
//	@description	Inventory costing and batch valuation engine
//	@BasePath		/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	// Telemetry comes up before everything else so the logger can tee into the OTLP log pipeline
	providers, err := telemetry.Setup(context.Background(), telemetry.Config{
		ServiceName:       cfg.Telemetry.ServiceName,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		TracingEnabled:    cfg.Telemetry.Enabled,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		MetricsEnabled:    cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		LogsEnabled:       cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled {
		if log, err = logger.New(logCfg, providers.ZapCore()); err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = log.Sync()
	}()

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Profiling.ApplicationName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
		MutexProfiles:     cfg.Profiling.MutexProfiles,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() && cfg.Profiling.SpanProfiles {
		providers.EnableSpanProfiles()
	}

	log.Info("Starting costing engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
		zap.String("default_cost_method", cfg.Costing.DefaultMethod),
	)

	// Initialize database connection with the zap-backed GORM logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		DBName:     cfg.Database.DBName,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully",
		zap.Duration("lock_timeout", cfg.Database.LockTimeout),
	)

	// Redis backs the idempotency store and the shared product costing cache when enabled
	cacheFactory := cache.NewFactory(cfg.Redis, cache.WithLogger(log))
	defer func() {
		if err := cacheFactory.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()

	idempotencyStore, err := cacheFactory.CreateIdempotencyStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()

	cacheCfg := cache.DefaultCacheConfig()
	cacheCfg.L1TTL = cfg.Costing.ProductCacheTTL
	productCache, err := cacheFactory.CreateProductCostingCache(cacheCfg, cfg.Redis.Enabled && cfg.Costing.ProductCacheRedis)
	if err != nil {
		log.Fatal("Failed to create product costing cache", zap.Error(err))
	}
	defer func() {
		_ = productCache.Close()
	}()

	cacheCtx, stopCache := context.WithCancel(context.Background())
	defer stopCache()
	go func() {
		if err := productCache.StartInvalidationSubscription(cacheCtx); err != nil && cacheCtx.Err() == nil {
			log.Warn("Product costing invalidation subscription stopped", zap.Error(err))
		}
	}()

	// Initialize repositories
	stockBatchRepo := persistence.NewGormStockBatchRepository(db.DB)
	inventoryTxRepo := persistence.NewGormInventoryTransactionRepository(db.DB)
	productCostingRepo := cache.NewCachedProductCostingRepository(
		persistence.NewGormProductCostingRepository(db.DB), productCache, log,
	)

	strategies, err := strategyimpl.NewRegistryWithDefaults()
	if err != nil {
		log.Fatal("Failed to register cost strategies", zap.Error(err))
	}

	// Initialize application services
	costingService := costing.NewCostingService(
		stockBatchRepo,
		inventoryTxRepo,
		productCostingRepo,
		persistence.NewGormTransactionScope(db.DB),
		strategies,
		costing.Options{
			UnitCostPrecision: cfg.Costing.UnitCostPrecision,
			ClampTolerance:    cfg.Costing.ClampTolerance,
			DefaultMethod:     strategy.ResolveCostMethod(cfg.Costing.DefaultMethod),
			BatchNumberPrefix: cfg.Costing.BatchNumberPrefix,
			BlockOnShortfall:  cfg.Costing.BlockOnShortfall,
		},
		log.Named("costing"),
	)

	costingMetrics, err := telemetry.NewCostingMetrics(telemetry.CostingMetricsConfig{
		Meter:  providers.Meter("erp.costing"),
		Logger: log,
	})
	if err != nil {
		log.Warn("Costing metrics disabled", zap.Error(err))
	}
	costingService.SetMetrics(costingMetrics)

	// Initialize HTTP handlers
	costingHandler := handler.NewCostingHandler(costingService, idempotencyStore, cfg.HTTP.IdempotencyTTL)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version)
	systemHandler.AddCheck("database", func(context.Context) error { return db.Ping() })
	if cfg.Redis.Enabled {
		systemHandler.AddCheck("redis", cacheFactory.Ping)
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing - Server span per request, error status from the handler's error code
	// 5. Security - Add security headers
	// 6. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	tracingCfg.Enabled = cfg.Telemetry.Enabled
	engine.Use(middleware.TracingWithConfig(tracingCfg))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(middleware.DefaultMaxBodyBytes))

	// Health check endpoint (outside API versioning and tenant resolution)
	engine.GET("/health", systemHandler.Health)

	httpMetrics, err := middleware.HTTPMetrics(providers.Meter("http.server"))
	if err != nil {
		log.Warn("HTTP metrics disabled", zap.Error(err))
		httpMetrics, _ = middleware.HTTPMetrics(nil)
	}

	// Setup API routes; every costing operation is scoped to the X-Tenant-ID tenant
	tenantCfg := middleware.DefaultTenantConfig()
	tenantCfg.Logger = log
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(
		middleware.TenantMiddlewareWithConfig(tenantCfg),
		middleware.TracingAttributeInjector(),
		middleware.ProfilingWithConfig(middleware.ProfilingConfig{
			Enabled:   profiler.IsEnabled(),
			SkipPaths: middleware.DefaultProfilingConfig().SkipPaths,
		}),
		httpMetrics,
	)
	r.Register(router.NewCostingRoutes(costingHandler)).
		Register(router.NewSystemRoutes(systemHandler))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}
