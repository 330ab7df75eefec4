package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/securebank-ledger/internal/domain/ledger"
	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/securebank-ledger/internal/export"
	"github.com/securebank-ledger/internal/platform/messaging/producers"
	processor "github.com/securebank-ledger/internal/transaction_processor/service"
)

// ErrAsyncImportUnavailable is returned by SubmitBatch when no batch import topic is wired
var ErrAsyncImportUnavailable = errors.New("asynchronous batch import is not enabled")

// TransactionServiceImpl implements the TransactionService interface
type TransactionServiceImpl struct {
	ledgerRepo ledger.Repository
	transfers  processor.TransferProcessor
	importer   processor.BatchImporter
	exporter   *export.Pipeline
	producer   producers.MessagePublisher // nil when async import is disabled
	maxItems   int
	logger     *slog.Logger
}

// NewTransactionService creates a new transaction service. producer may be nil.
func NewTransactionService(
	logger *slog.Logger,
	ledgerRepo ledger.Repository,
	transfers processor.TransferProcessor,
	importer processor.BatchImporter,
	exporter *export.Pipeline,
	producer producers.MessagePublisher,
	maxBatchItems int,
) TransactionService {
	return &TransactionServiceImpl{
		ledgerRepo: ledgerRepo,
		transfers:  transfers,
		importer:   importer,
		exporter:   exporter,
		producer:   producer,
		maxItems:   maxBatchItems,
		logger:     logger,
	}
}

func (s *TransactionServiceImpl) Transfer(ctx context.Context, req *shared.TransferRequest) (*ledger.Transaction, error) {
	return s.transfers.Transfer(ctx, req)
}

func (s *TransactionServiceImpl) GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	tx, err := s.ledgerRepo.Get(ctx, id)
	if err != nil {
		if shared.KindOf(err) != shared.KindNotFound {
			s.logger.Error("Failed to get transaction", "transaction_id", id.String(), "error", err)
		}
		return nil, err
	}
	return tx, nil
}

func (s *TransactionServiceImpl) ListTransactions(ctx context.Context, accountID, sortKey, order string) ([]*ledger.Transaction, error) {
	accountID, err := normalizeAccountID(accountID)
	if err != nil {
		return nil, err
	}
	key, err := ledger.ParseSortKey(sortKey)
	if err != nil {
		return nil, err
	}
	dir, err := ledger.ParseSortDirection(order)
	if err != nil {
		return nil, err
	}

	txs, err := s.ledgerRepo.ListByAccount(ctx, accountID, key, dir)
	if err != nil {
		s.logger.Error("Failed to list transactions", "account_id", accountID, "error", err)
		return nil, err
	}
	return txs, nil
}

func (s *TransactionServiceImpl) AnnotateTransaction(ctx context.Context, id uuid.UUID, note string) (*ledger.Transaction, error) {
	if utf8.RuneCountInString(note) > ledger.MaxNoteLength {
		return nil, shared.ErrInvalidArgument{Field: "note", Reason: "is too long"}
	}
	tx, err := s.ledgerRepo.Annotate(ctx, id, note)
	if err != nil {
		if shared.KindOf(err) != shared.KindNotFound {
			s.logger.Error("Failed to annotate transaction", "transaction_id", id.String(), "error", err)
		}
		return nil, err
	}
	s.logger.Info("Transaction annotated",
		"transaction_id", id.String(),
		"note_length", utf8.RuneCountInString(note),
		"correlation_id", shared.CorrelationIDFromContext(ctx),
	)
	return tx, nil
}

func (s *TransactionServiceImpl) Export(ctx context.Context, accountID, format, startDate, endDate string) (*export.Document, error) {
	accountID, err := normalizeAccountID(accountID)
	if err != nil {
		return nil, err
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	dateRange, err := ledger.ParseDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, accountID, f, dateRange)
}

func (s *TransactionServiceImpl) ImportBatch(ctx context.Context, reqs []shared.TransferRequest) (*processor.BatchImportResult, error) {
	return s.importer.ImportBatch(ctx, reqs)
}

// SubmitBatch checks the batch shape up front so the caller gets size errors
// synchronously. Item validation happens in the worker.
func (s *TransactionServiceImpl) SubmitBatch(ctx context.Context, reqs []shared.TransferRequest) (string, error) {
	if s.producer == nil {
		return "", ErrAsyncImportUnavailable
	}
	if len(reqs) == 0 {
		return "", shared.ErrInvalidArgument{Field: "transactions", Reason: "must contain at least one item"}
	}
	if s.maxItems > 0 && len(reqs) > s.maxItems {
		return "", shared.ErrInvalidArgument{Field: "transactions", Reason: "too many items in one batch"}
	}

	batch := shared.BatchImportRequest{
		BatchID:       uuid.New().String(),
		CorrelationID: shared.CorrelationIDFromContext(ctx),
		Transactions:  reqs,
	}
	if err := s.producer.Publish(ctx, batch.BatchID, batch); err != nil {
		s.logger.Error("Failed to publish batch import request",
			"batch_id", batch.BatchID,
			"items", len(reqs),
			"error", err,
		)
		return "", err
	}

	s.logger.Info("Batch import request published",
		"batch_id", batch.BatchID,
		"items", len(reqs),
		"correlation_id", batch.CorrelationID,
	)
	return batch.BatchID, nil
}

func normalizeAccountID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", shared.ErrInvalidArgument{Field: "accountId", Reason: "is required"}
	}
	if utf8.RuneCountInString(id) > ledger.MaxAccountIDLength {
		return "", shared.ErrInvalidArgument{Field: "accountId", Reason: "is too long"}
	}
	return id, nil
}
