package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"finbook/internal/amqp"
	"finbook/internal/config"
	applog "finbook/internal/log"
	"finbook/internal/services"
	"finbook/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     applog.DefaultConfig().Level,
		Component: applog.ComponentReplicator,
	})
	applog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Replicated transactions go through the ledger service so they trigger
	// the same export publishing as user-created ones.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without ledger export",
				applog.FieldError, err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	ledger := services.NewLedgerService(repo, amqpClient, cfg.PrimaryIncomeCategory)
	replicator := services.NewReplicator(repo, ledger)
	subscriptions := services.NewSubscriptionService(repo, nil, cfg.SubscriptionPrice)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runReplicator := func() {
		now := time.Now().UTC()
		count, err := replicator.Run(ctx, now)
		if err != nil {
			logger.Error("Recurring replication failed", applog.FieldError, err)
			return
		}
		logger.Info("Recurring replication complete", "transactions_created", count)
	}

	runExpirySweep := func() {
		now := time.Now().UTC()
		expired, err := subscriptions.ExpireLapsed(ctx, now)
		if err != nil {
			logger.Error("Subscription expiry sweep failed", applog.FieldError, err)
			return
		}
		logger.Info("Subscription expiry sweep complete", "subscriptions_expired", expired)

		if err := repo.DeleteExpiredSessions(ctx, now); err != nil {
			logger.Error("Session cleanup failed", applog.FieldError, err)
		}
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ReplicatorSpec, runReplicator); err != nil {
		logger.Error("Failed to schedule replicator", applog.FieldError, err, "spec", cfg.ReplicatorSpec)
		os.Exit(1)
	}
	if _, err := scheduler.AddFunc(cfg.ExpirySweepSpec, runExpirySweep); err != nil {
		logger.Error("Failed to schedule expiry sweep", applog.FieldError, err, "spec", cfg.ExpirySweepSpec)
		os.Exit(1)
	}

	logger.Info("Recurring-worker configured",
		"replicator_spec", cfg.ReplicatorSpec,
		"expiry_sweep_spec", cfg.ExpirySweepSpec,
		"sqlite_db", cfg.SQLiteDBPath)

	// Run both jobs once on startup to cover restarts across due dates.
	runReplicator()
	runExpirySweep()

	scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()

	// Let the scheduler finish any job already running.
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
		logger.Info("Recurring-worker shutdown complete")
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
}
