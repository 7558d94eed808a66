package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	installmentapp "github.com/hwmix/backend/internal/application/installment"
	ledgerapp "github.com/hwmix/backend/internal/application/ledger"
	"github.com/hwmix/backend/internal/domain/shared"
	"github.com/hwmix/backend/internal/infrastructure/cache"
	"github.com/hwmix/backend/internal/infrastructure/config"
	"github.com/hwmix/backend/internal/infrastructure/event"
	"github.com/hwmix/backend/internal/infrastructure/logger"
	"github.com/hwmix/backend/internal/infrastructure/persistence"
	"github.com/hwmix/backend/internal/infrastructure/scheduler"
)

// The server process is the background settlement daemon: it keeps the
// installment overdue sweep running and logs every domain event it causes.
// Invoicing and stock allocation services are consumed as a library by
// embedding applications; there is no HTTP surface here.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Idempotency store: Redis when configured, in-memory otherwise
	idempotencyStore, err := cache.NewIdempotencyStore(cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Event bus with a catch-all audit trail
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditLogHandler(log))

	// Application services the daemon drives
	ledgerService := ledgerapp.NewLedgerService(
		persistence.NewGormLedgerTransactionScope(db.DB),
		eventBus,
		idempotencyStore,
		shared.IdempotencyConfig{
			Enabled: cfg.Idempotency.Enabled,
			TTL:     cfg.Idempotency.TTL,
		},
		log,
	)
	settlementService := installmentapp.NewSettlementService(
		persistence.NewGormInstallmentTransactionScope(db.DB),
		ledgerService,
		eventBus,
		log,
	)

	// Periodic overdue sweep across all companies with active plans
	planRepo := persistence.NewGormPlanRepository(db.DB)
	overdueScheduler := scheduler.NewOverdueScheduler(
		cfg.Installment.OverdueCheckInterval,
		planRepo,
		settlementService,
		log,
	)
	if err := overdueScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start overdue scheduler", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := overdueScheduler.Stop(stopCtx); err != nil {
			log.Error("Error stopping overdue scheduler", zap.Error(err))
		}
	}()

	log.Info("Settlement daemon running",
		zap.Bool("idempotency_enabled", cfg.Idempotency.Enabled),
		zap.Duration("overdue_check_interval", cfg.Installment.OverdueCheckInterval),
	)

	// Block until shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")
}
