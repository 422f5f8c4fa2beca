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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/camroute/fare-engine/internal/apikeys"
	"github.com/camroute/fare-engine/internal/corpus"
	"github.com/camroute/fare-engine/internal/corpus/migrations"
	"github.com/camroute/fare-engine/internal/estimate"
	"github.com/camroute/fare-engine/internal/geodata"
	"github.com/camroute/fare-engine/internal/ingest"
	"github.com/camroute/fare-engine/pkg/cache"
	"github.com/camroute/fare-engine/pkg/common"
	"github.com/camroute/fare-engine/pkg/config"
	"github.com/camroute/fare-engine/pkg/database"
	"github.com/camroute/fare-engine/pkg/errors"
	"github.com/camroute/fare-engine/pkg/health"
	"github.com/camroute/fare-engine/pkg/logger"
	"github.com/camroute/fare-engine/pkg/middleware"
	redisclient "github.com/camroute/fare-engine/pkg/redis"
	"github.com/camroute/fare-engine/pkg/tracing"
)

const (
	serviceName = "fare-engine"
	version     = "1.0.0"
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting fare engine",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.String("environment", cfg.Server.Environment),
	)

	// Initialize Sentry for error tracking
	sentryConfig := errors.DefaultSentryConfig()
	sentryConfig.ServerName = serviceName
	sentryConfig.Release = version
	if err := errors.InitSentry(sentryConfig); err != nil {
		logger.Warn("Failed to initialize Sentry, continuing without error tracking", zap.Error(err))
	} else {
		defer errors.Flush(2 * time.Second)
		logger.Info("Sentry error tracking initialized successfully")
	}

	// Initialize OpenTelemetry tracer
	tracerEnabled := os.Getenv("OTEL_ENABLED") == "true"
	if tracerEnabled {
		tracerCfg := tracing.Config{
			ServiceName:    os.Getenv("OTEL_SERVICE_NAME"),
			ServiceVersion: os.Getenv("OTEL_SERVICE_VERSION"),
			Environment:    cfg.Server.Environment,
			OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Enabled:        true,
		}

		tp, err := tracing.InitTracer(tracerCfg, logger.Get())
		if err != nil {
			logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Failed to shutdown tracer", zap.Error(err))
				}
			}()
			logger.Info("OpenTelemetry tracing initialized successfully")
		}
	}

	db, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	logger.Info("Connected to database")

	if err := database.Migrate(&cfg.Database, migrations.FS, "."); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	redisClient, err := redisclient.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}()
	cacheManager := cache.NewManager(redisClient)

	mapboxClient := geodata.NewMapboxClient(&cfg.Mapbox)
	weatherClient := geodata.NewOpenMeteoClient(&cfg.Weather)
	gateway := geodata.NewGateway(mapboxClient, weatherClient, cacheManager, cfg)

	corpusRepo := corpus.NewRepository(db)
	corpusService := corpus.NewService(corpusRepo, cacheManager)
	corpusHandler := corpus.NewHandler(corpusService)

	apiKeyRepo := apikeys.NewRepository(db)
	apiKeyService := apikeys.NewService(apiKeyRepo, cacheManager)

	classifier := estimate.NewClassifier(&cfg.Classifier, cfg.Estimator.MinCorpusSize)
	if err := classifier.Load(); err != nil {
		logger.Warn("Classifier artifact not loaded, fallback estimates degrade to tariff",
			zap.String("path", cfg.Classifier.ArtifactPath), zap.Error(err))
	}
	go classifier.StartReloader(rootCtx, time.Duration(cfg.Classifier.ReloadSeconds)*time.Second)

	estimateService := estimate.NewService(gateway, corpusService, classifier, &cfg.Estimator)
	estimateHandler := estimate.NewHandler(estimateService)

	ingestService := ingest.NewService(gateway, corpusRepo)
	ingestHandler := ingest.NewHandler(ingestService)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RecoveryWithSentry())
	router.Use(middleware.SentryMiddleware())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestTimeout(time.Duration(cfg.Server.WriteTimeout) * time.Second))
	router.Use(middleware.RequestLogger(serviceName))
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.SanitizeRequest())
	router.Use(middleware.Metrics(serviceName))

	if tracerEnabled {
		router.Use(middleware.TracingMiddleware(serviceName))
	}

	router.Use(middleware.ErrorHandler())

	// Health check endpoints
	router.GET("/healthz", common.HealthCheck(serviceName, version))
	router.GET("/health/live", common.LivenessProbe(serviceName, version))

	healthChecks := map[string]func() error{
		"database": health.DatabaseChecker(db),
		"redis":    health.RedisChecker(redisClient.Client),
	}
	router.GET("/health/ready", common.ReadinessProbe(serviceName, version, healthChecks))

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": serviceName,
			"version": version,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	v1.Use(apikeys.Middleware(apiKeyService))
	{
		v1.POST("/estimates", estimateHandler.CreateEstimate)
		v1.POST("/trips", ingestHandler.SubmitTrip)
		v1.GET("/trips", ingestHandler.ListTrips)
		v1.GET("/trips/:id", ingestHandler.GetTrip)
		v1.GET("/corpus/stats", corpusHandler.GetStats)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancelRoot()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}
