package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carousel-server/internal/config"
	internalDB "carousel-server/internal/database"
	"carousel-server/internal/handler"
	"carousel-server/internal/layout"
	"carousel-server/internal/messaging"
	"carousel-server/internal/repository"
	"carousel-server/internal/service"
	"carousel-server/internal/storage"
	"carousel-server/pkg/database"
	sharedLogger "carousel-server/pkg/logger"
	"carousel-server/pkg/middleware"
	"carousel-server/pkg/migration"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

const serviceName = "carousel-server"

// Синхронная генерация держит запрос открытым до конца прогона
const generationWriteTimeout = 20 * time.Minute

func main() {
	// Логгер до загрузки конфигурации, уровень и формат еще неизвестны
	bootstrap, err := sharedLogger.New(sharedLogger.Config{Service: serviceName})
	if err != nil {
		fmt.Printf("Failed to initialize bootstrap logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(bootstrap)
	if err != nil {
		bootstrap.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, err := sharedLogger.New(sharedLogger.Config{
		Level:      cfg.LogLevel,
		Encoding:   cfg.LogEncoding,
		OutputPath: cfg.LogOutput,
		Service:    serviceName,
	})
	if err != nil {
		bootstrap.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	logger.Info("Logger initialized", zap.String("log_level", cfg.LogLevel))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// --- PostgreSQL ---
	db, err := database.New(ctx, database.Config{
		DSN:            cfg.GetDSN(),
		MaxConns:       cfg.DBMaxConns,
		ConnectTimeout: cfg.DBConnectTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()

	if cfg.DBMigrationsOnRun {
		migrator := migration.NewMigrator(migration.Config{
			MigrationsPath: internalDB.MigrationsPath,
			MigrationsFS:   internalDB.MigrationsFS,
		}, db.Pool, logger)
		if err := migrator.Up(); err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// --- Redis (необязателен) ---
	var redisClient *redis.Client
	var redisCmd redis.Cmdable
	if cfg.RedisAddr != "" {
		redisClient, err = setupRedis(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		redisCmd = redisClient
	} else {
		logger.Info("REDIS_ADDR is empty, layout cache works in-process only")
	}

	// --- RabbitMQ (необязателен) ---
	var publisher service.EventPublisher = messaging.NoopPublisher{Logger: logger.Named("NoopPublisher")}
	var mqConn *amqp.Connection
	if cfg.RabbitMQURL != "" {
		mqConn, err = messaging.Connect(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer mqConn.Close()
		rabbit, err := messaging.NewRabbitMQPublisher(mqConn, cfg.EventsExchange, cfg.EventsRoutingKey, logger)
		if err != nil {
			logger.Fatal("Failed to create event publisher", zap.Error(err))
		}
		publisher = rabbit
	} else {
		logger.Info("RABBITMQ_URL is empty, generation events are only logged")
	}

	// --- Хранилище и модели ---
	fileStore, err := storage.NewFileStore(cfg.StorageRoot, cfg.StorageSignSecret, cfg.PublicBaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to initialize file storage", zap.Error(err))
	}

	textClient, err := service.NewTextClient(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create text client", zap.Error(err))
	}
	imageClient, err := service.NewImageClient(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create image client", zap.Error(err))
	}
	if cfg.TextCredentialsMissing() {
		logger.Warn("Text model API key is not set, generation and edits will be rejected")
	}
	if cfg.ImageCredentialsMissing() {
		logger.Warn("Image model API key is not set, every image request will fail")
	}

	// --- Dependency Injection ---
	docRepo := repository.NewPgDocumentRepository(logger)
	jobRepo := repository.NewPgJobRepository(cfg.JobStaleAfter, logger)
	assetRepo := repository.NewPgAssetRepository(logger)
	lockRepo := repository.NewPgLockRepository(logger)
	layoutRepo := repository.NewPgLayoutRepository(db.Pool, logger)

	layoutCache, err := layout.NewCachedStore(layoutRepo, cfg.LayoutLRUSize, redisCmd, cfg.LayoutCacheTTL, logger)
	if err != nil {
		logger.Fatal("Failed to create layout cache", zap.Error(err))
	}
	resolver := layout.NewResolver(layoutCache, logger)

	textAdapter := service.NewTextAdapter(textClient, cfg.JSONRepair, logger)
	imageAdapter := service.NewImageAdapter(imageClient, service.ImageModels{
		Default: cfg.ImageModelDefault,
		Text:    cfg.ImageModelText,
	}, cfg.ImageMinBytes, logger)
	references := service.NewReferenceLoader(db.Pool, assetRepo, fileStore, cfg.MaxReferenceImages, logger)

	genOpts := service.GenerationOptions{
		TextModel:              cfg.TextModel,
		FallbackModels:         cfg.TextFallbackModels,
		ReviewPasses:           cfg.AestheticReviewPasses,
		DefaultStyleSimilarity: cfg.DefaultStyleSimilarity,
		KeepUnrequestedAssets:  cfg.MergeKeepUnrequestedAssets,
		TextConfigured:         !cfg.TextCredentialsMissing(),
	}
	generationService := service.NewGenerationService(db.Pool, db, docRepo, jobRepo, assetRepo, resolver,
		references, textAdapter, imageAdapter, fileStore, publisher, genOpts, logger)
	editService := service.NewEditService(db.Pool, docRepo, lockRepo, textAdapter, genOpts, logger)
	documentService := service.NewDocumentService(db.Pool, docRepo, lockRepo, assetRepo, layoutRepo, layoutCache, fileStore,
		service.DocumentOptions{SignedURLTTL: cfg.SignedURLTTL, MaxUploadBytes: cfg.MaxUploadBytes}, logger)

	carouselHandler := handler.NewCarouselHandler(documentService, generationService, editService, fileStore,
		cfg.JWTSecret, cfg.MaxUploadBytes, logger)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.GinZapLogger(logger))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")

	corsConfig := cors.DefaultConfig()
	if origins := cfg.GetAllowedOrigins(); len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	modelLimit := middleware.RateLimit(
		middleware.NewRateLimitStore(redisClient, cfg.ModelRateLimitWindow, cfg.ModelRateLimit),
		logger.Named("RateLimit"),
	)
	carouselHandler.RegisterRoutes(router, modelLimit)

	// Prometheus после регистрации роутов, он же отдает /metrics
	p.Use(router)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: generationWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Starting HTTP server", zap.String("port", cfg.HTTPPort))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

// setupRedis подключается к Redis с повторными попытками.
func setupRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	const maxRetries = 10
	const retryDelay = 3 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		client := redis.NewClient(opts)
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := client.Ping(pingCtx).Result()
		pingCancel()
		if err == nil {
			logger.Info("Connected to Redis", zap.String("address", opts.Addr), zap.Int("attempt", attempt))
			return client, nil
		}
		client.Close()
		lastErr = err
		logger.Warn("Redis ping failed, retrying...", zap.Int("attempt", attempt), zap.Int("max_retries", maxRetries), zap.Error(err))
		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("redis connect cancelled: %w", ctx.Err())
			case <-time.After(retryDelay):
			}
		}
	}
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxRetries, lastErr)
}
