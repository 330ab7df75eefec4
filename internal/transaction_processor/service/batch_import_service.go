package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/securebank-ledger/internal/domain/ledger"
	"github.com/securebank-ledger/internal/domain/shared"
)

// ItemStatus labels the outcome of one batch item
type ItemStatus string

const (
	ItemImported ItemStatus = "imported"
	ItemRejected ItemStatus = "rejected"
)

// BatchItemResult is the outcome of the item at Index in the input
type BatchItemResult struct {
	Index          int                    `json:"index"`
	Status         ItemStatus             `json:"status"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty"`
	Transaction    *ledger.Transaction    `json:"transaction,omitempty"`
	Reason         shared.RejectionReason `json:"reason,omitempty"`
	Field          string                 `json:"field,omitempty"`
	Message        string                 `json:"message,omitempty"`
}

// BatchImportResult preserves input order
type BatchImportResult struct {
	Items    []BatchItemResult `json:"items"`
	Imported int               `json:"imported"`
	Rejected int               `json:"rejected"`
}

type BatchImportServiceImpl struct {
	transfers TransferProcessor
	maxItems  int
	logger    *slog.Logger
}

func NewBatchImportService(transfers TransferProcessor, maxItems int, logger *slog.Logger) BatchImporter {
	return &BatchImportServiceImpl{
		transfers: transfers,
		maxItems:  maxItems,
		logger:    logger,
	}
}

// ImportBatch attempts every item in input order. A failing item never aborts
// the rest, and items already imported are not rolled back.
func (s *BatchImportServiceImpl) ImportBatch(ctx context.Context, requests []shared.TransferRequest) (*BatchImportResult, error) {
	if len(requests) == 0 {
		return nil, shared.ErrInvalidArgument{Field: "transactions", Reason: "must contain at least one item"}
	}
	if s.maxItems > 0 && len(requests) > s.maxItems {
		return nil, shared.ErrInvalidArgument{Field: "transactions", Reason: fmt.Sprintf("must contain at most %d items", s.maxItems)}
	}

	correlationID := shared.CorrelationIDFromContext(ctx)
	logger := s.logger
	if correlationID != "" {
		logger = s.logger.With("correlation_id", correlationID)
	}

	result := &BatchImportResult{Items: make([]BatchItemResult, 0, len(requests))}
	for i := range requests {
		request := requests[i]
		if request.CorrelationID == "" {
			request.CorrelationID = correlationID
		}

		item := BatchItemResult{Index: i, IdempotencyKey: request.IdempotencyKey}
		tx, err := s.transfers.Transfer(ctx, &request)
		if err != nil {
			item.Status = ItemRejected
			item.Reason, item.Field, item.Message = describeRejection(err)
			result.Rejected++
			logger.Warn("Batch item rejected", "index", i, "reason", item.Reason, "error", err)
		} else {
			item.Status = ItemImported
			item.Transaction = tx
			result.Imported++
		}
		result.Items = append(result.Items, item)
	}

	logger.Info("Batch import finished",
		"items", len(requests),
		"imported", result.Imported,
		"rejected", result.Rejected,
	)
	return result, nil
}

// describeRejection maps an item error to a stable reason. Storage details stay in the logs.
func describeRejection(err error) (shared.RejectionReason, string, string) {
	var invalid shared.ErrInvalidArgument
	if errors.As(err, &invalid) {
		return shared.RejectionInvalidArgument, invalid.Field, invalid.Error()
	}
	var violation shared.ErrConstraintViolation
	if errors.As(err, &violation) {
		return shared.RejectionConstraintViolation, "", violation.Error()
	}
	return shared.RejectionStorageError, "", "the transaction could not be stored"
}
