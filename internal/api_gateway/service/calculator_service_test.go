package service

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculatorService_Evaluate(t *testing.T) {
	svc := NewCalculatorService(testLogger(), 32)
	ctx := context.Background()

	v, err := svc.Evaluate(ctx, "2 + 3 * 4", nil)
	require.NoError(t, err)
	assert.Equal(t, 14.0, v)

	v, err = svc.Evaluate(ctx, "x ^ 2 + y", map[string]float64{"x": 3, "y": 1})
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)

	tests := []struct {
		name string
		expr string
		vars map[string]float64
		kind shared.ErrorKind
	}{
		{"sqrt of negative", "sqrt(x)", map[string]float64{"x": -1}, shared.KindDomainError},
		{"division by zero", "1 / 0", nil, shared.KindDomainError},
		{"unbound variable", "balance * 2", nil, shared.KindUndefinedVariable},
		{"host code is not an expression", "require('child_process')", nil, shared.KindSyntaxError},
		{"longer than the configured limit", strings.Repeat("1+", 20) + "1", nil, shared.KindSyntaxError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Evaluate(ctx, tt.expr, tt.vars)
			assert.Equal(t, tt.kind, shared.KindOf(err))
		})
	}
}

func TestCalculatorService_Interest(t *testing.T) {
	svc := NewCalculatorService(testLogger(), 0)
	ctx := context.Background()

	v, err := svc.Interest(ctx, InterestRequest{Principal: 1000, Rate: 5, Time: 2})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, v, 1e-9)

	v, err = svc.Interest(ctx, InterestRequest{Principal: 1000, Rate: 5, Time: 2, Formula: "principal * (1 + rate / 100) ^ time - principal"})
	require.NoError(t, err)
	assert.InDelta(t, 102.5, v, 1e-9)

	_, err = svc.Interest(ctx, InterestRequest{Principal: math.Inf(1), Rate: 5, Time: 2})
	var invalid shared.ErrInvalidArgument
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "principal", invalid.Field)

	_, err = svc.Interest(ctx, InterestRequest{Principal: 1, Rate: 1, Time: 1, Formula: "principal * bonus"})
	assert.Equal(t, shared.KindUndefinedVariable, shared.KindOf(err))
}

func TestCalculatorService_EvaluateBatch(t *testing.T) {
	svc := NewCalculatorService(testLogger(), 0)

	results := svc.EvaluateBatch(context.Background(), []string{"1 + 1", "sqrt(", "abs(-4)"})
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 2.0, results[0].Value)
	assert.Equal(t, shared.KindSyntaxError, shared.KindOf(results[1].Err))
	assert.Equal(t, "sqrt(", results[1].Expression)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, 4.0, results[2].Value)
}
