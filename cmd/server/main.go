package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/vinylhouse/labelapi/internal/api"
	"github.com/vinylhouse/labelapi/internal/config"
	"github.com/vinylhouse/labelapi/internal/lifecycle"
	"github.com/vinylhouse/labelapi/internal/metrics"
	"github.com/vinylhouse/labelapi/internal/payment"
	"github.com/vinylhouse/labelapi/internal/repository"
	"github.com/vinylhouse/labelapi/internal/repository/memory"
	"github.com/vinylhouse/labelapi/internal/repository/postgres"
	"github.com/vinylhouse/labelapi/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting label back-office API",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.String("store", cfg.StoreDriver),
	)
	if cfg.Admin.APIKeyHash == "" {
		logger.Warn("ADMIN_API_KEY_HASH is not set; /v1/admin answers 503")
	}

	repos, db := openStore(cfg, logger)
	if db != nil {
		defer db.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.New(reg)

	clock := lifecycle.SystemClock{}
	authority := payment.NewClient(cfg.Payment, collector, logger)
	svc := api.Services{
		Orders:     service.NewOrderService(repos, clock, collector, logger),
		Reconciler: service.NewReconciler(repos, authority, cfg.Payment.Timeout, clock, collector, logger),
		Inventory: service.NewInventoryService(repos, clock, service.InventoryOptions{
			BulkConcurrency: cfg.BulkConcurrency,
			SalesWindow:     cfg.SalesWindow(),
		}, collector, logger),
	}

	// Initialize router
	router := api.NewRouter(cfg, svc, collector, reg, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started successfully", zap.String("address", srv.Addr))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.Environment == "production" {
		zcfg = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level
	return zcfg.Build()
}

// openStore returns the configured repositories. db is nil for the memory store.
func openStore(cfg *config.Config, logger *zap.Logger) (*repository.Repositories, *sql.DB) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("Using in-memory store; data is lost on restart")
		return memory.NewStore().Repositories(), nil
	}

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := postgres.RunMigrations(ctx, db, logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	return postgres.NewRepositories(db, logger), db
}
