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
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"edulend/loan-portal/loan-portal-backend/internal/auth"
	"edulend/loan-portal/loan-portal-backend/internal/config"
	"edulend/loan-portal/loan-portal-backend/internal/extraction"
	"edulend/loan-portal/loan-portal-backend/internal/ratelimit"
	"edulend/loan-portal/loan-portal-backend/internal/subjects"
	"edulend/loan-portal/loan-portal-backend/internal/verification"
	"edulend/loan-portal/loan-portal-backend/pkg/storage"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	_ = godotenv.Load()
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Connect to database
	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if cfg.Database.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxConnections)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}

	// Registration rate limiting backed by Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	limiter := ratelimit.NewLimiter(
		ratelimit.NewRedisStore(redisClient, "loan-portal"),
		cfg.RateLimit.RegistrationLimit,
		cfg.RateLimit.RegistrationWindow,
	)

	// Archival document store; optional, the pipeline runs without it
	var archive verification.DocumentArchive
	if cfg.Storage.Bucket != "" {
		s3Client, err := storage.NewS3Client(context.Background(), cfg.Storage.Region)
		if err != nil {
			logger.Warn("S3 unavailable, submissions will not be archived", zap.Error(err))
		} else {
			archive = verification.NewS3Archive(s3Client, cfg.Storage.Bucket)
		}
	}

	// Extraction gateway
	gateway := extraction.NewClient(cfg.Extraction.BaseURL, extraction.Timeouts{
		Health:  cfg.Extraction.HealthTimeout,
		Extract: cfg.Extraction.ExtractTimeout,
		Batch:   cfg.Extraction.BatchTimeout,
	}, logger)

	// Wire services
	subjectsRepo := subjects.NewRepository(db)
	subjectsService := subjects.NewService(subjectsRepo)
	subjectsHandler := subjects.NewHandler(subjectsService, limiter, logger)

	verificationRepo := verification.NewRepository(db)
	verificationService := verification.NewService(verificationRepo, gateway, archive, logger)
	verificationHandler := verification.NewHandler(verificationService, logger)

	// Setup Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api/v1")
	authed := api.Group("")
	authed.Use(auth.Middleware(cfg.Security.JWTSecret))
	{
		subjectsHandler.RegisterRoutes(api, authed)
		verificationHandler.RegisterRoutes(authed)
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.Int("port", cfg.Server.Port))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
