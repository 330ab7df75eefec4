package handler

import (
	"time"

	"github.com/securebank-ledger/internal/domain/ledger"
	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/securebank-ledger/internal/transaction_processor/service"
)

// TransferRequest represents a request to move funds between two accounts.
// Field checks happen in the transfer validator so every failure carries a field name.
type TransferRequest struct {
	FromAccount    string        `json:"fromAccount"`
	ToAccount      string        `json:"toAccount"`
	Amount         shared.Amount `json:"amount"`
	Description    string        `json:"description"`
	IdempotencyKey string        `json:"idempotencyKey,omitempty"`
}

func (r TransferRequest) toShared(correlationID string) shared.TransferRequest {
	return shared.TransferRequest{
		FromAccount:    r.FromAccount,
		ToAccount:      r.ToAccount,
		Amount:         r.Amount,
		Description:    r.Description,
		IdempotencyKey: r.IdempotencyKey,
		CorrelationID:  correlationID,
	}
}

// NoteRequest replaces the note of a transaction
type NoteRequest struct {
	Note *string `json:"note" binding:"required"`
}

// BatchImportRequest carries many transfers imported with per-item isolation
type BatchImportRequest struct {
	Transactions []TransferRequest `json:"transactions"`
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID            string  `json:"id"`
	FromAccount   string  `json:"fromAccount"`
	ToAccount     string  `json:"toAccount"`
	Amount        string  `json:"amount"`
	Description   string  `json:"description"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"createdAt"`
	Note          *string `json:"note,omitempty"`
	NoteUpdatedAt string  `json:"noteUpdatedAt,omitempty"`
}

// BatchItemResponse is the outcome of one batch item
type BatchItemResponse struct {
	Index          int                  `json:"index"`
	Status         string               `json:"status"`
	IdempotencyKey string               `json:"idempotencyKey,omitempty"`
	Transaction    *TransactionResponse `json:"transaction,omitempty"`
	Reason         string               `json:"reason,omitempty"`
	Field          string               `json:"field,omitempty"`
	Message        string               `json:"message,omitempty"`
}

// BatchImportResponse preserves the order of the request items
type BatchImportResponse struct {
	Items    []BatchItemResponse `json:"items"`
	Imported int                 `json:"imported"`
	Rejected int                 `json:"rejected"`
}

// ScheduleRequest registers a recurring report
type ScheduleRequest struct {
	ReportName         string            `json:"reportName" binding:"required"`
	Parameters         map[string]string `json:"parameters"`
	ScheduleExpression string            `json:"scheduleExpression" binding:"required"`
}

// CustomReportRequest renders a built-in template
type CustomReportRequest struct {
	Template string                 `json:"template" binding:"required"`
	Data     map[string]interface{} `json:"data"`
}

// EvaluateRequest is one formula with optional variable bindings
type EvaluateRequest struct {
	Expression string             `json:"expression" binding:"required"`
	Variables  map[string]float64 `json:"variables,omitempty"`
}

// InterestRequest mirrors the simple interest inputs. Formula is optional.
type InterestRequest struct {
	Principal *float64 `json:"principal" binding:"required"`
	Rate      *float64 `json:"rate" binding:"required"`
	Time      *float64 `json:"time" binding:"required"`
	Formula   string   `json:"formula,omitempty"`
}

// CalculationBatchRequest evaluates many formulas independently
type CalculationBatchRequest struct {
	Expressions []string `json:"expressions" binding:"required"`
}

// CalculationResponse is the value of one formula
type CalculationResponse struct {
	Expression string  `json:"expression,omitempty"`
	Result     float64 `json:"result"`
}

// CalculationItemResponse is one entry of a batch evaluation
type CalculationItemResponse struct {
	Expression string     `json:"expression"`
	Result     *float64   `json:"result,omitempty"`
	Error      *ErrorInfo `json:"error,omitempty"`
}

// ListParams are the query parameters of the transaction listing
type ListParams struct {
	Sort  string `form:"sort"`
	Order string `form:"order"`
}

// ExportParams are the optional export bounds
type ExportParams struct {
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}

// RunHistoryParams bounds the run history listing
type RunHistoryParams struct {
	Limit int `form:"limit,default=50" binding:"min=1,max=500"`
}

func mapTransactionToResponse(tx *ledger.Transaction) TransactionResponse {
	response := TransactionResponse{
		ID:          tx.ID.String(),
		FromAccount: tx.FromAccount,
		ToAccount:   tx.ToAccount,
		Amount:      tx.Amount.StringFixed(ledger.AmountScale),
		Description: tx.Description,
		Status:      string(tx.Status),
		CreatedAt:   tx.CreatedAt.Format(time.RFC3339Nano),
		Note:        tx.Note,
	}
	if tx.NoteUpdatedAt != nil {
		response.NoteUpdatedAt = tx.NoteUpdatedAt.Format(time.RFC3339Nano)
	}
	return response
}

func mapBatchResultToResponse(result *service.BatchImportResult) BatchImportResponse {
	response := BatchImportResponse{
		Items:    make([]BatchItemResponse, 0, len(result.Items)),
		Imported: result.Imported,
		Rejected: result.Rejected,
	}
	for _, item := range result.Items {
		out := BatchItemResponse{
			Index:          item.Index,
			Status:         string(item.Status),
			IdempotencyKey: item.IdempotencyKey,
			Reason:         string(item.Reason),
			Field:          item.Field,
			Message:        item.Message,
		}
		if item.Transaction != nil {
			tx := mapTransactionToResponse(item.Transaction)
			out.Transaction = &tx
		}
		response.Items = append(response.Items, out)
	}
	return response
}
