package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	transferapp "github.com/horizonbank/backend/internal/application/transfer"
	"github.com/horizonbank/backend/internal/infrastructure/auth"
	"github.com/horizonbank/backend/internal/infrastructure/cache"
	"github.com/horizonbank/backend/internal/infrastructure/config"
	"github.com/horizonbank/backend/internal/infrastructure/logger"
	"github.com/horizonbank/backend/internal/infrastructure/notifier"
	"github.com/horizonbank/backend/internal/infrastructure/persistence"
	"github.com/horizonbank/backend/internal/infrastructure/storage"
	"github.com/horizonbank/backend/internal/infrastructure/telemetry"
	"github.com/horizonbank/backend/internal/interfaces/http/handler"
	"github.com/horizonbank/backend/internal/interfaces/http/middleware"
	"github.com/horizonbank/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Horizon Bank backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// OTEL log export: rebuild the logger around a bridge core when enabled
	logsProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logs provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := logsProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down logs provider", zap.Error(err))
		}
	}()
	if logsProvider.IsEnabled() {
		log = telemetry.NewBridgedLogger(log.Core(), telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: logsProvider,
			Level:          telemetry.ParseLogLevel(cfg.Log.Level),
		}))
	}

	// Tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Metrics
	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()
	var ledgerMetrics *telemetry.LedgerMetrics
	if meterProvider.IsEnabled() {
		ledgerMetrics, err = telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
			Meter:  meterProvider.Meter("horizonbank/ledger"),
			Logger: log,
		})
		if err != nil {
			log.Fatal("Failed to initialize ledger metrics", zap.Error(err))
		}
	}

	// Continuous profiling
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Profiling.Enabled,
		ServerAddress:   cfg.Profiling.ServerAddress,
		ApplicationName: cfg.App.Name,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if cfg.Profiling.Enabled && cfg.Telemetry.Enabled {
		tracerProvider.EnableSpanProfiles()
	}

	// Database
	gormLogLevel := gormlogger.Silent
	if cfg.Log.Level == "debug" {
		gormLogLevel = gormlogger.Info
	}
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Register gorm span instrumentation
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      !cfg.IsProduction(),
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Repositories and unit of work
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	transactionRepo := persistence.NewGormTransactionRepository(db.DB)
	uow := persistence.NewGormUnitOfWork(db)
	directory := persistence.NewGormAccountDirectory(db.DB)

	// Verification attempt limiter: Redis-backed, in-memory fallback
	var limiter transferapp.VerifyAttemptLimiter
	redisLimiter, err := cache.NewRedisAttemptLimiter(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Movement.VerifyMaxAttempts, cfg.Movement.VerifyAttemptWindow)
	if err != nil {
		log.Warn("Redis unavailable, using in-memory attempt limiter", zap.Error(err))
		limiter = cache.NewInMemoryAttemptLimiter(cfg.Movement.VerifyMaxAttempts, cfg.Movement.VerifyAttemptWindow)
	} else {
		defer func() {
			if err := redisLimiter.Close(); err != nil {
				log.Error("Error closing Redis limiter", zap.Error(err))
			}
		}()
		limiter = redisLimiter
	}

	// Statement archive
	var archive transferapp.StatementArchive
	if cfg.Storage.Enabled {
		s3Archive, err := storage.NewS3StatementArchive(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize statement archive", zap.Error(err))
		}
		archive = s3Archive
		log.Info("Statement archive enabled", zap.String("bucket", cfg.Storage.Bucket))
	}

	// Application services
	codeNotifier := notifier.NewLogNotifier(log)
	movementService := transferapp.NewMovementService(uow, accountRepo, codeNotifier, directory,
		transferapp.WithVerifyAttemptLimiter(limiter),
		transferapp.WithMovementMetrics(ledgerMetrics),
	)
	cryptoService := transferapp.NewCryptoService(uow, transferapp.WithCryptoMetrics(ledgerMetrics))
	refundService := transferapp.NewRefundService(uow, transferapp.WithRefundMetrics(ledgerMetrics))
	queryService := transferapp.NewLedgerQueryService(transactionRepo, accountRepo, uow)
	statementService := transferapp.NewStatementService(transactionRepo, accountRepo, archive)

	// JWT
	jwtService := auth.NewJWTService(cfg.JWT)

	// HTTP handlers
	movementHandler := handler.NewMovementHandler(movementService)
	cryptoHandler := handler.NewCryptoHandler(cryptoService)
	refundHandler := handler.NewRefundHandler(refundService)
	ledgerHandler := handler.NewLedgerHandler(queryService, statementService)
	systemHandler := handler.NewSystemHandler(db)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/health",
			"/api/v1/ready",
		},
		Logger: log,
	}))

	r.Register(router.NewTransferRoutes(movementHandler, refundHandler, ledgerHandler)).
		Register(router.NewCryptoRoutes(cryptoHandler)).
		Register(router.NewTransactionRoutes(ledgerHandler, refundHandler)).
		Register(router.NewAccountRoutes(ledgerHandler)).
		Register(router.NewSystemRoutes(systemHandler))
	r.Setup()

	// Liveness endpoint outside the versioned API
	engine.GET("/health", systemHandler.Health)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
