package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/securebank-ledger/internal/config"
	"github.com/securebank-ledger/internal/data/postgres"
	"github.com/securebank-ledger/internal/logger"
	"github.com/securebank-ledger/internal/platform/messaging/consumers"
	"github.com/securebank-ledger/internal/platform/messaging/producers"
	"github.com/securebank-ledger/internal/platform/persistence"
	"github.com/securebank-ledger/internal/transaction_processor/components"
	"github.com/securebank-ledger/internal/transaction_processor/consumer"
	"github.com/securebank-ledger/internal/transaction_processor/outbox_poller"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("transaction_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Transaction Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"config_file", cfg.Source,
	)

	// The worker shares the durable ledger with the gateway; an in-memory store would be invisible to it
	if !cfg.Ledger.UsesPostgres() {
		log.Error("Transaction Processor requires LEDGER_BACKEND=postgres", "ledger_backend", cfg.Ledger.Backend)
		os.Exit(1)
	}

	// Initialize database with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	ledgerRepo := postgres.NewTransactionRepository(log, postgresDB, outboxRepo)

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka, cfg.Kafka.BatchImportTopic)

	// Initialize Kafka producers
	eventProducer, err := producers.NewLedgerEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize ledger event Kafka producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// A nil *DLQProducer must not reach the handler as a non-nil interface
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	// Initialize processing components
	transfers := components.CreateTransferProcessor(ledgerRepo, log)
	importer, shutdownImporter := components.CreatePooledBatchImporter(transfers, log, cfg)

	batchImportHandler := consumer.NewBatchImportHandler(
		log.With("component", "batch_import_handler"),
		importer,
		deadLetters,
	)

	// Initialize outbox poller
	eventPublisher := outbox_poller.NewKafkaEventPublisher(outboxRepo, eventProducer, log)
	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		eventPublisher,
		log,
	)

	// Create error channel for service errors
	errChan := make(chan error, 1)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer; Subscribe returns once the read loop is running
	log.Info("Starting Kafka consumer",
		"topic", cfg.Kafka.BatchImportTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := kafkaConsumer.Subscribe(appCtx, batchImportHandler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Close Kafka consumer so no new batches arrive
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Release the batch worker pool
	shutdownImporter()

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close Kafka producers
	if dlqProducer != nil {
		if closeErr := dlqProducer.Close(); closeErr != nil {
			log.Error("Error closing DLQ Kafka producer", "error", closeErr)
			err = closeErr
		}
	}
	if closeErr := eventProducer.Close(); closeErr != nil {
		log.Error("Error closing ledger event Kafka producer", "error", closeErr)
		err = closeErr
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Final status
	if serviceErr != nil {
		log.Error("Transaction Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Transaction Processor shutdown completed with errors")
	} else {
		log.Info("Transaction Processor shutdown completed successfully")
	}
}
