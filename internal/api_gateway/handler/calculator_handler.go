package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/securebank-ledger/internal/api_gateway/service"
	"github.com/securebank-ledger/internal/domain/shared"
)

// CalculatorHandler exposes the sandboxed expression evaluator
type CalculatorHandler struct {
	calculatorService service.CalculatorService
	logger            *slog.Logger
}

func NewCalculatorHandler(logger *slog.Logger, calculatorService service.CalculatorService) *CalculatorHandler {
	return &CalculatorHandler{
		calculatorService: calculatorService,
		logger:            logger,
	}
}

func (h *CalculatorHandler) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: expression is required")
		return
	}

	result, err := h.calculatorService.Evaluate(c.Request.Context(), req.Expression, req.Variables)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, CalculationResponse{Expression: req.Expression, Result: result})
}

func (h *CalculatorHandler) Interest(c *gin.Context) {
	var req InterestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: principal, rate and time are required")
		return
	}

	result, err := h.calculatorService.Interest(c.Request.Context(), service.InterestRequest{
		Principal: *req.Principal,
		Rate:      *req.Rate,
		Time:      *req.Time,
		Formula:   req.Formula,
	})
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, CalculationResponse{Result: result})
}

// Batch evaluates each expression on its own; per-item errors do not fail the request
func (h *CalculatorHandler) Batch(c *gin.Context) {
	var req CalculationBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: expressions is required")
		return
	}
	if len(req.Expressions) > service.MaxBatchExpressions {
		RespondWithDomainError(c, h.logger, shared.ErrInvalidArgument{Field: "expressions", Reason: "too many expressions in one request"})
		return
	}

	results := h.calculatorService.EvaluateBatch(c.Request.Context(), req.Expressions)
	items := make([]CalculationItemResponse, 0, len(results))
	for _, r := range results {
		item := CalculationItemResponse{Expression: r.Expression}
		if r.Err != nil {
			item.Error = errorInfo(r.Err)
		} else {
			v := r.Value
			item.Result = &v
		}
		items = append(items, item)
	}
	RespondWithList(c, items, len(items))
}
