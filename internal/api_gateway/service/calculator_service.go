package service

import (
	"context"
	"log/slog"
	"math"

	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/securebank-ledger/internal/expression"
	"github.com/securebank-ledger/internal/report"
)

// MaxBatchExpressions bounds one calculator batch request
const MaxBatchExpressions = 100

// InterestRequest carries the inputs of an interest formula. An empty Formula means simple interest.
type InterestRequest struct {
	Principal float64
	Rate      float64
	Time      float64
	Formula   string
}

// EvaluationResult is the outcome of one expression in a batch
type EvaluationResult struct {
	Expression string
	Value      float64
	Err        error
}

// CalculatorServiceImpl evaluates formulas through the closed expression grammar only
type CalculatorServiceImpl struct {
	parser *expression.Parser
	logger *slog.Logger
}

func NewCalculatorService(logger *slog.Logger, maxExpressionLength int) CalculatorService {
	return &CalculatorServiceImpl{
		parser: expression.NewParser(maxExpressionLength),
		logger: logger,
	}
}

func (s *CalculatorServiceImpl) Evaluate(ctx context.Context, expr string, variables map[string]float64) (float64, error) {
	parsed, err := s.parser.Parse(expr)
	if err != nil {
		s.logger.Debug("Expression rejected",
			"length", len(expr),
			"error_kind", string(shared.KindOf(err)),
			"correlation_id", shared.CorrelationIDFromContext(ctx),
		)
		return 0, err
	}
	return parsed.Evaluate(expression.Bindings(variables))
}

func (s *CalculatorServiceImpl) Interest(ctx context.Context, req InterestRequest) (float64, error) {
	inputs := []struct {
		field string
		value float64
	}{
		{"principal", req.Principal},
		{"rate", req.Rate},
		{"time", req.Time},
	}
	bindings := make(expression.Bindings, len(inputs))
	for _, in := range inputs {
		if math.IsNaN(in.value) || math.IsInf(in.value, 0) {
			return 0, shared.ErrInvalidArgument{Field: in.field, Reason: "must be a finite number"}
		}
		bindings[in.field] = in.value
	}

	formula := req.Formula
	if formula == "" {
		formula = report.DefaultInterestFormula
	}
	parsed, err := s.parser.Parse(formula)
	if err != nil {
		return 0, err
	}
	return parsed.Evaluate(bindings)
}

// EvaluateBatch evaluates each expression independently; one failure never affects another
func (s *CalculatorServiceImpl) EvaluateBatch(ctx context.Context, exprs []string) []EvaluationResult {
	results := make([]EvaluationResult, len(exprs))
	failed := 0
	for i, expr := range exprs {
		v, err := s.Evaluate(ctx, expr, nil)
		results[i] = EvaluationResult{Expression: expr, Value: v, Err: err}
		if err != nil {
			failed++
		}
	}
	s.logger.Info("Calculator batch evaluated",
		"count", len(exprs),
		"failed", failed,
		"correlation_id", shared.CorrelationIDFromContext(ctx),
	)
	return results
}
