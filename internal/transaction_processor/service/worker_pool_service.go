package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/panjf2000/ants/v2"
	"github.com/securebank-ledger/internal/domain/shared"
)

// WorkerPoolBatchImporter bounds how many batches import at the same time.
// Items inside one batch stay sequential.
type WorkerPoolBatchImporter struct {
	base   BatchImporter
	pool   *ants.Pool
	logger *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolBatchImporter(
	base BatchImporter,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolBatchImporter, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolBatchImporter{
		base:   base,
		pool:   pool,
		logger: logger,
	}, nil
}

type batchOutcome struct {
	result *BatchImportResult
	err    error
}

// ImportBatch runs the batch on a pooled worker and waits for its result
func (s *WorkerPoolBatchImporter) ImportBatch(ctx context.Context, requests []shared.TransferRequest) (*BatchImportResult, error) {
	logger := s.logger
	if id := shared.CorrelationIDFromContext(ctx); id != "" {
		logger = s.logger.With("correlation_id", id)
	}

	logger.Debug("Submitting batch to worker pool", "items", len(requests))

	done := make(chan batchOutcome, 1)
	err := s.pool.Submit(func() {
		result, err := s.base.ImportBatch(ctx, requests)
		done <- batchOutcome{result: result, err: err}
	})
	if err != nil {
		logger.Error("Failed to submit batch to worker pool", "error", err)
		return nil, fmt.Errorf("failed to submit batch to worker pool: %w", err)
	}

	out := <-done
	return out.result, out.err
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolBatchImporter) Shutdown() {
	s.logger.Info("Shutting down batch worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolBatchImporter) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolBatchImporter) Capacity() int {
	return s.pool.Cap()
}
