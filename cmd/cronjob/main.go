package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/lib/pq"

	"pistachio-backend/internal/config"
	"pistachio-backend/internal/jobs"
	"pistachio-backend/internal/logger"
	"pistachio-backend/internal/repository/postgres"
	"pistachio-backend/internal/scheduler"
	"pistachio-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'send-overdue-reminders', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Pistachio Cronjob Runner...", "log_level", cfg.Log.Level)

	if cfg.Storage.Type != "postgres" {
		log.Fatalf("Cronjob runner needs the postgres store, got %q", cfg.Storage.Type)
	}

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db)

	// Reminders go out through SendGrid when a key is configured
	var notifier service.Notifier
	if cfg.Notifications.SendGridAPIKey != "" {
		notifier = service.NewSendGridNotifier(cfg.Notifications.SendGridAPIKey, cfg.Notifications.FromEmail, cfg.Notifications.FromName)
	} else {
		logger.Warn("No SendGrid API key configured; reminders are only logged")
		notifier = service.NewLogNotifier()
	}

	jobServices := &jobs.Services{
		// Jobs bypass the read cache; they run in their own process.
		Accounts:  service.NewAccountService(store, nil, 0, cfg.Ledger.OrderDebtMode),
		Stock:     service.NewStockService(store),
		Reminders: service.NewReminderService(store, notifier),
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(store, jobServices, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := jobRunner.Run(*runOnce); err != nil {
			logger.Error("Job execution failed", "job", *runOnce, "error", err)
			fmt.Printf("Available jobs:\n  - %s\n", strings.Join(jobRunner.JobNames(), "\n  - "))
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to register cron jobs: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}
