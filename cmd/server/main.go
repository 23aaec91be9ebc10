package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	httpapi "pistachio-backend/internal/api/http"
	"pistachio-backend/internal/cache"
	"pistachio-backend/internal/config"
	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/logger"
	"pistachio-backend/internal/repository"
	"pistachio-backend/internal/repository/memory"
	"pistachio-backend/internal/repository/postgres"
	"pistachio-backend/internal/security"
	"pistachio-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Pistachio Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Ledger configuration", "order_debt_mode", cfg.Ledger.OrderDebtMode, "require_shipped", cfg.Payments.RequireShipped)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Error("Failed to open store", "error", err)
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.AccessTokenTTL())

	// Initialize Services
	accountCache := cache.NewTTLCache[*domain.CustomerAccount]()
	authSvc := service.NewAuthService(store.Users(), tokenManager)
	services := httpapi.Services{
		Auth:      authSvc,
		Customers: service.NewCustomerService(store, accountCache),
		Orders:    service.NewOrderService(store, accountCache, cfg.Ledger.OrderDebtMode),
		Ledger:    service.NewLedgerService(store, accountCache),
		Payments:  service.NewPaymentService(store, accountCache, cfg.Payments.RequireShipped),
		Accounts:  service.NewAccountService(store, accountCache, cfg.AccountCacheTTL(), cfg.Ledger.OrderDebtMode),
		Stock:     service.NewStockService(store),
	}

	if cfg.Bootstrap.AdminUsername != "" {
		err := authSvc.EnsureUser(context.Background(), cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword, domain.UserRoleAdmin)
		if err != nil {
			logger.Error("Failed to bootstrap admin user", "error", err)
			log.Fatalf("Failed to bootstrap admin user: %v", err)
		}
		logger.Info("Admin user ready", "username", cfg.Bootstrap.AdminUsername)
	}

	router := httpapi.NewRouter(httpapi.NewHandler(services), tokenManager)
	srv := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down HTTP server...")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownGraceSecs)*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("HTTP server stopped. Goodbye!")
}

// openStore connects the configured repository backend.
func openStore(cfg *config.Config) (repository.Store, func(), error) {
	if cfg.Storage.Type == "memory" {
		logger.Warn("Using in-memory store; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test database connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established", "host", cfg.Database.Host, "database", cfg.Database.Database)

	return postgres.NewStore(db), func() { db.Close() }, nil
}
