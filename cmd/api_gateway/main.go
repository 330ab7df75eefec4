package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/securebank-ledger/internal/api_gateway"
	"github.com/securebank-ledger/internal/api_gateway/service"
	"github.com/securebank-ledger/internal/config"
	"github.com/securebank-ledger/internal/data/memory"
	"github.com/securebank-ledger/internal/data/mongo"
	"github.com/securebank-ledger/internal/data/postgres"
	"github.com/securebank-ledger/internal/domain/ledger"
	domain "github.com/securebank-ledger/internal/domain/report"
	"github.com/securebank-ledger/internal/export"
	"github.com/securebank-ledger/internal/expression"
	"github.com/securebank-ledger/internal/logger"
	"github.com/securebank-ledger/internal/platform/messaging/producers"
	"github.com/securebank-ledger/internal/platform/persistence"
	"github.com/securebank-ledger/internal/report"
	"github.com/securebank-ledger/internal/scheduler"
	"github.com/securebank-ledger/internal/transaction_processor/components"
)

// backend holds the stores and the connections that must be closed on shutdown
type backend struct {
	ledger   ledger.Repository
	runs     domain.RunRepository
	producer producers.MessagePublisher // nil disables async batch import
	closers  []func(ctx context.Context) error
}

func (b *backend) close(ctx context.Context, log *slog.Logger) error {
	var firstErr error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			log.Error("Error closing backend resource", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Ledger API Gateway",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"config_file", cfg.Source,
		"ledger_backend", cfg.Ledger.Backend,
	)

	var store *backend
	if cfg.Ledger.UsesPostgres() {
		store, err = openDurableBackend(appCtx, log, cfg)
	} else {
		store = openMemoryBackend(log)
	}
	if err != nil {
		log.Error("Failed to initialize ledger backend", "error", err)
		os.Exit(1)
	}

	// Initialize domain components
	transfers := components.CreateTransferProcessor(store.ledger, log)
	importer := components.CreateBatchImporter(transfers, log, cfg)
	exporter := export.NewPipeline(log.With("component", "export"), store.ledger)

	engine, err := report.NewEngine(log.With("component", "report_engine"), report.Sources{
		Ledger:    store.ledger,
		Exporter:  exporter,
		Evaluator: expression.NewParser(cfg.Calculator.MaxExpressionLength),
		Now:       func() time.Time { return time.Now().UTC() },
	}, report.DefaultDefinitions()...)
	if err != nil {
		log.Error("Failed to initialize report engine", "error", err)
		os.Exit(1)
	}

	sched, err := scheduler.NewScheduler(&cfg.Scheduler, engine, store.runs, log.With("component", "scheduler"))
	if err != nil {
		log.Error("Failed to initialize report scheduler", "error", err)
		os.Exit(1)
	}
	sched.Start(appCtx)

	// Initialize services
	services := api_gateway.Services{
		Transactions: service.NewTransactionService(log, store.ledger, transfers, importer, exporter, store.producer, cfg.Batch.MaxItems),
		Reports:      service.NewReportService(log, engine, sched),
		Calculator:   service.NewCalculatorService(log, cfg.Calculator.MaxExpressionLength),
	}

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, services)

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before the stores go away
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// In-flight report runs finish before history storage closes
	sched.Shutdown()
	log.Info("Report scheduler stopped")

	if closeErr := store.close(shutdownCtx, log); closeErr != nil && err == nil {
		err = closeErr
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}

func openMemoryBackend(log *slog.Logger) *backend {
	log.Warn("Using in-memory ledger, data is lost on restart and async batch import is disabled")
	return &backend{
		ledger: memory.NewTransactionStore(),
		runs:   memory.NewRunStore(),
	}
}

// openDurableBackend connects Postgres, MongoDB and the Kafka batch import producer.
// Ledger events are published by the transaction processor's outbox poller.
func openDurableBackend(ctx context.Context, log *slog.Logger, cfg *config.Config) (*backend, error) {
	b := &backend{}
	fail := func(err error) (*backend, error) {
		_ = b.close(context.Background(), log)
		return nil, err
	}

	if cfg.Postgres.MigrationsPath != "" {
		if err := persistence.RunMigrations(log, cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	postgresDB, err := persistence.NewPostgresDB(ctx, log, &cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	b.closers = append(b.closers, func(context.Context) error {
		postgresDB.Close()
		return nil
	})

	mongoDB, err := persistence.NewMongoDB(ctx, log, &cfg.MongoDB)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize MongoDB: %w", err))
	}
	b.closers = append(b.closers, mongoDB.Close)

	runRepo := mongo.NewRunRepository(log, mongoDB.Database())
	if err := runRepo.EnsureIndexes(ctx); err != nil {
		return fail(fmt.Errorf("failed to create report run indexes: %w", err))
	}

	batchProducer, err := producers.NewBatchImportProducer(ctx, log, &cfg.Kafka)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize batch import producer: %w", err))
	}
	b.closers = append(b.closers, func(context.Context) error { return batchProducer.Close() })

	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	b.ledger = postgres.NewTransactionRepository(log, postgresDB, outboxRepo)
	b.runs = runRepo
	b.producer = batchProducer
	return b, nil
}
