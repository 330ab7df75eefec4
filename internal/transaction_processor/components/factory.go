package components

import (
	"log/slog"

	"github.com/securebank-ledger/internal/config"
	"github.com/securebank-ledger/internal/domain/ledger"
	"github.com/securebank-ledger/internal/transaction_processor/service"
)

// CreateTransferProcessor wires the validator in front of the ledger
func CreateTransferProcessor(ledgerRepo ledger.Repository, logger *slog.Logger) service.TransferProcessor {
	return service.NewTransferService(
		ledgerRepo,
		NewTransferValidator(logger.With("component", "transfer_validator")),
		logger.With("component", "transfer_service"),
	)
}

// CreateBatchImporter returns the sequential importer
func CreateBatchImporter(transfers service.TransferProcessor, logger *slog.Logger, cfg *config.Config) service.BatchImporter {
	return service.NewBatchImportService(transfers, cfg.Batch.MaxItems, logger.With("component", "batch_import"))
}

// CreatePooledBatchImporter bounds concurrent batches for the Kafka worker.
// It falls back to the plain importer when the pool cannot be created.
func CreatePooledBatchImporter(transfers service.TransferProcessor, logger *slog.Logger, cfg *config.Config) (service.BatchImporter, func()) {
	base := CreateBatchImporter(transfers, logger, cfg)

	pooled, err := service.NewWorkerPoolBatchImporter(
		base,
		service.WorkerPoolConfig{Size: cfg.Batch.WorkerPoolSize},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool batch importer, falling back to base importer", "error", err)
		return base, func() {}
	}

	logger.Info("Created worker pool batch importer", "pool_size", cfg.Batch.WorkerPoolSize)
	return pooled, pooled.Shutdown
}
