package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/securebank-ledger/internal/platform/messaging/producers"
	"github.com/securebank-ledger/internal/transaction_processor/service"
)

// BatchImportHandler handles batch import requests consumed from Kafka
type BatchImportHandler struct {
	importer service.BatchImporter
	producer producers.DeadLetterPublisher
	logger   *slog.Logger
}

// NewBatchImportHandler creates a new handler. producer may be nil when no DLQ is configured.
func NewBatchImportHandler(
	logger *slog.Logger,
	importer service.BatchImporter,
	producer producers.DeadLetterPublisher,
) *BatchImportHandler {
	return &BatchImportHandler{
		importer: importer,
		producer: producer,
		logger:   logger,
	}
}

// HandleMessage imports one batch. Returning nil commits the offset.
func (h *BatchImportHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.BatchImportRequest
	if err := json.Unmarshal(value, &request); err != nil {
		h.logger.Error("Failed to unmarshal batch import request from Kafka message", "error", err, "message_key", string(key))
		return h.deadLetter(ctx, string(key), value, "unmarshal batch import request: "+err.Error(), err)
	}

	if request.CorrelationID != "" {
		ctx = shared.ContextWithCorrelationID(ctx, request.CorrelationID)
	}
	logger := h.logger.With("batch_id", request.BatchID)
	if request.CorrelationID != "" {
		logger = logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Received batch import request", "items", len(request.Transactions))

	result, err := h.importer.ImportBatch(ctx, request.Transactions)
	if err != nil {
		var invalid shared.ErrInvalidArgument
		if errors.As(err, &invalid) {
			// retrying cannot fix a malformed batch
			logger.Warn("Batch import request rejected", "error", err)
			return h.deadLetter(ctx, string(key), value, err.Error(), err)
		}
		logger.Error("Failed to import batch", "error", err)
		return fmt.Errorf("importing batch %s failed: %w", request.BatchID, err)
	}

	for _, item := range result.Items {
		if item.Status != service.ItemRejected {
			continue
		}
		h.deadLetterItem(ctx, request, item)
	}

	logger.Info("Batch import request processed", "imported", result.Imported, "rejected", result.Rejected)
	return nil
}

// deadLetter parks an unprocessable message. If no DLQ accepts it, cause is returned so the offset stays uncommitted.
func (h *BatchImportHandler) deadLetter(ctx context.Context, key string, value []byte, reason string, cause error) error {
	if h.producer == nil {
		return fmt.Errorf("no DLQ configured for unprocessable message: %w", cause)
	}
	if err := h.producer.PublishToDLQ(ctx, key, value, reason); err != nil {
		h.logger.Error("Failed to publish message to DLQ", "dlq_error", err, "original_error", cause, "message_key", key)
		return fmt.Errorf("failed to dead-letter message: %w", cause)
	}
	return nil
}

// deadLetterItem parks a single rejected item so no synchronous caller is needed to see it
func (h *BatchImportHandler) deadLetterItem(ctx context.Context, request shared.BatchImportRequest, item service.BatchItemResult) {
	if h.producer == nil || item.Index >= len(request.Transactions) {
		return
	}
	payload, err := json.Marshal(request.Transactions[item.Index])
	if err != nil {
		h.logger.Error("Failed to marshal rejected batch item", "batch_id", request.BatchID, "index", item.Index, "error", err)
		return
	}
	key := fmt.Sprintf("%s/%d", request.BatchID, item.Index)
	reason := fmt.Sprintf("%s: %s", item.Reason, item.Message)
	if err := h.producer.PublishToDLQ(ctx, key, payload, reason); err != nil {
		h.logger.Error("Failed to dead-letter rejected batch item", "batch_id", request.BatchID, "index", item.Index, "error", err)
	}
}
