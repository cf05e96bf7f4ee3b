// The reconcile worker repairs verification rows whose overall status drifted
// from their sub-parts, the residue of persistence failures that happened
// after a successful extraction.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"edulend/loan-portal/loan-portal-backend/internal/config"
	"edulend/loan-portal/loan-portal-backend/internal/extraction"
	"edulend/loan-portal/loan-portal-backend/internal/verification"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	_ = godotenv.Load()
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	gateway := extraction.NewClient(cfg.Extraction.BaseURL, extraction.Timeouts{
		Health:  cfg.Extraction.HealthTimeout,
		Extract: cfg.Extraction.ExtractTimeout,
		Batch:   cfg.Extraction.BatchTimeout,
	}, logger)

	repo := verification.NewRepository(db)
	service := verification.NewService(repo, gateway, nil, logger)

	scheduler := cron.New()
	_, err = scheduler.AddFunc("@every 10m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		repaired, err := service.Reconcile(ctx)
		if err != nil {
			logger.Error("reconciliation pass failed", zap.Error(err))
			return
		}
		if repaired > 0 {
			logger.Info("reconciliation repaired records", zap.Int("repaired", repaired))
		}
	})
	if err != nil {
		logger.Fatal("Failed to schedule reconciliation", zap.Error(err))
	}

	scheduler.Start()
	logger.Info("Reconcile worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	<-scheduler.Stop().Done()
	logger.Info("Reconcile worker exiting")
}
