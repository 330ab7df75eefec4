package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/securebank-ledger/internal/api_gateway/middleware"
	"github.com/securebank-ledger/internal/api_gateway/service"
	"github.com/securebank-ledger/internal/domain/shared"
)

// TransactionHandler handles HTTP requests for ledger operations
type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

// Transfer records one transfer and returns the committed transaction
func (h *TransactionHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid transfer request body", "error", err)
		RespondBadRequest(c, "Invalid request body")
		return
	}

	transfer := req.toShared(middleware.GetCorrelationID(c))
	tx, err := h.transactionService.Transfer(c.Request.Context(), &transfer)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondCreated(c, mapTransactionToResponse(tx))
}

// GetByID retrieves a transaction by its ID, returns 404 if not found
func (h *TransactionHandler) GetByID(c *gin.Context) {
	id, ok := h.transactionID(c)
	if !ok {
		return
	}

	tx, err := h.transactionService.GetTransaction(c.Request.Context(), id)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, mapTransactionToResponse(tx))
}

// Annotate replaces the note attached to a transaction
func (h *TransactionHandler) Annotate(c *gin.Context) {
	id, ok := h.transactionID(c)
	if !ok {
		return
	}

	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: note is required")
		return
	}

	tx, err := h.transactionService.AnnotateTransaction(c.Request.Context(), id, *req.Note)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, mapTransactionToResponse(tx))
}

// ListByAccount returns every transaction where the account is sender or receiver
func (h *TransactionHandler) ListByAccount(c *gin.Context) {
	var params ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters")
		return
	}

	txs, err := h.transactionService.ListTransactions(c.Request.Context(), c.Param("accountId"), params.Sort, params.Order)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	transactions := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		transactions = append(transactions, mapTransactionToResponse(tx))
	}
	RespondWithList(c, transactions, len(transactions))
}

// Export streams the account's transactions as a downloadable document
func (h *TransactionHandler) Export(c *gin.Context) {
	var params ExportParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters")
		return
	}

	doc, err := h.transactionService.Export(c.Request.Context(), c.Param("accountId"), c.Param("format"), params.StartDate, params.EndDate)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

// ImportBatch imports every item synchronously and reports per-item outcomes
func (h *TransactionHandler) ImportBatch(c *gin.Context) {
	reqs, ok := h.batchItems(c)
	if !ok {
		return
	}

	result, err := h.transactionService.ImportBatch(c.Request.Context(), reqs)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, mapBatchResultToResponse(result))
}

// SubmitBatch queues the batch for the background worker
func (h *TransactionHandler) SubmitBatch(c *gin.Context) {
	reqs, ok := h.batchItems(c)
	if !ok {
		return
	}

	batchID, err := h.transactionService.SubmitBatch(c.Request.Context(), reqs)
	if err != nil {
		if errors.Is(err, service.ErrAsyncImportUnavailable) {
			RespondServiceUnavailable(c, err.Error())
			return
		}
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondAccepted(c, gin.H{
		"batchId": batchID,
		"items":   len(reqs),
		"status":  "queued",
	})
}

func (h *TransactionHandler) batchItems(c *gin.Context) ([]shared.TransferRequest, bool) {
	var req BatchImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid batch import request body", "error", err)
		RespondBadRequest(c, "Invalid request body")
		return nil, false
	}

	correlationID := middleware.GetCorrelationID(c)
	reqs := make([]shared.TransferRequest, 0, len(req.Transactions))
	for _, item := range req.Transactions {
		reqs = append(reqs, item.toShared(correlationID))
	}
	return reqs, true
}

func (h *TransactionHandler) transactionID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondWithDomainError(c, h.logger, shared.ErrInvalidArgument{Field: "id", Reason: "must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}
