package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/securebank-ledger/internal/domain/ledger"
	domain "github.com/securebank-ledger/internal/domain/report"
	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/securebank-ledger/internal/export"
	"github.com/securebank-ledger/internal/report"
	processor "github.com/securebank-ledger/internal/transaction_processor/service"
)

// TransactionService defines the ledger operations exposed over HTTP
type TransactionService interface {
	// Transfer validates and records one transfer synchronously
	Transfer(ctx context.Context, req *shared.TransferRequest) (*ledger.Transaction, error)

	// GetTransaction returns ErrNotFound when no transaction has the id
	GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error)

	// ListTransactions returns every transaction touching the account.
	// sortKey and order are validated against fixed enumerations.
	ListTransactions(ctx context.Context, accountID, sortKey, order string) ([]*ledger.Transaction, error)

	// AnnotateTransaction replaces the note of an existing transaction
	AnnotateTransaction(ctx context.Context, id uuid.UUID, note string) (*ledger.Transaction, error)

	// Export renders the account's transactions in the requested format.
	// startDate and endDate are optional.
	Export(ctx context.Context, accountID, format, startDate, endDate string) (*export.Document, error)

	// ImportBatch records many transfers with per-item isolation
	ImportBatch(ctx context.Context, reqs []shared.TransferRequest) (*processor.BatchImportResult, error)

	// SubmitBatch queues a batch for the background worker and returns its batch id
	SubmitBatch(ctx context.Context, reqs []shared.TransferRequest) (string, error)
}

// ReportService defines report generation and scheduling operations
type ReportService interface {
	ListReports() []*report.Definition
	GenerateReport(ctx context.Context, name string, params map[string]string) (*report.Content, error)
	RenderCustom(ctx context.Context, templateName string, data map[string]interface{}) (*report.Content, error)

	ScheduleReport(ctx context.Context, name string, params map[string]string, scheduleExpression string) (*domain.ScheduledJob, error)
	// CancelSchedule returns ErrNotFound for unknown or already cancelled jobs
	CancelSchedule(ctx context.Context, id uuid.UUID) error
	GetSchedule(ctx context.Context, id uuid.UUID) (*domain.ScheduledJob, error)
	ListSchedules(ctx context.Context) []*domain.ScheduledJob
	ScheduleRuns(ctx context.Context, id uuid.UUID, limit int) ([]*domain.RunRecord, error)
}

// CalculatorService evaluates sandboxed formulas
type CalculatorService interface {
	Evaluate(ctx context.Context, expr string, variables map[string]float64) (float64, error)
	Interest(ctx context.Context, req InterestRequest) (float64, error)
	EvaluateBatch(ctx context.Context, exprs []string) []EvaluationResult
}
