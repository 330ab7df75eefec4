package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/securebank-ledger/internal/api_gateway/service"
	"github.com/securebank-ledger/internal/expression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCalculatorRouter(svc *MockCalculatorService) http.Handler {
	h := NewCalculatorHandler(testLogger(), svc)
	r := newTestRouter()
	r.POST("/calculator/evaluate", h.Evaluate)
	r.POST("/calculator/interest", h.Interest)
	r.POST("/calculator/batch", h.Batch)
	return r
}

func TestCalculatorHandler_Evaluate(t *testing.T) {
	svc := new(MockCalculatorService)
	svc.On("Evaluate", mock.Anything, "2 + 3 * 4", map[string]float64(nil)).Return(14.0, nil).Once()
	svc.On("Evaluate", mock.Anything, "sqrt(x)", map[string]float64{"x": -1}).
		Return(0.0, expression.DomainError{Op: "sqrt", Reason: "argument must not be negative"}).Once()
	svc.On("Evaluate", mock.Anything, "2 +", map[string]float64(nil)).
		Return(0.0, expression.SyntaxError{Pos: 3, Msg: "unexpected end of expression"}).Once()
	router := newCalculatorRouter(svc)

	rr := doRequest(router, http.MethodPost, "/calculator/evaluate", `{"expression":"2 + 3 * 4"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	body := decode[CalculationResponse](t, rr.Body.Bytes())
	assert.Equal(t, 14.0, body.Data.Result)

	rr = doRequest(router, http.MethodPost, "/calculator/evaluate", `{"expression":"sqrt(x)","variables":{"x":-1}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	errBody := decode[json.RawMessage](t, rr.Body.Bytes())
	assert.Equal(t, "DOMAIN_ERROR", errBody.Error.Code)

	rr = doRequest(router, http.MethodPost, "/calculator/evaluate", `{"expression":"2 +"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	errBody = decode[json.RawMessage](t, rr.Body.Bytes())
	assert.Equal(t, "SYNTAX_ERROR", errBody.Error.Code)

	rr = doRequest(router, http.MethodPost, "/calculator/evaluate", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertExpectations(t)
}

func TestCalculatorHandler_Interest(t *testing.T) {
	svc := new(MockCalculatorService)
	svc.On("Interest", mock.Anything, service.InterestRequest{Principal: 1000, Rate: 0, Time: 2}).Return(0.0, nil).Once()
	router := newCalculatorRouter(svc)

	rr := doRequest(router, http.MethodPost, "/calculator/interest", `{"principal":1000,"rate":0,"time":2}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(router, http.MethodPost, "/calculator/interest", `{"principal":1000,"time":2}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertExpectations(t)
}

func TestCalculatorHandler_Batch(t *testing.T) {
	svc := new(MockCalculatorService)
	svc.On("EvaluateBatch", mock.Anything, []string{"1+1", "x"}).Return([]service.EvaluationResult{
		{Expression: "1+1", Value: 2},
		{Expression: "x", Err: expression.UndefinedVariableError{Name: "x"}},
	}).Once()
	router := newCalculatorRouter(svc)

	rr := doRequest(router, http.MethodPost, "/calculator/batch", `{"expressions":["1+1","x"]}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	body := decode[[]CalculationItemResponse](t, rr.Body.Bytes())
	require.Len(t, body.Data, 2)
	require.NotNil(t, body.Data[0].Result)
	assert.Equal(t, 2.0, *body.Data[0].Result)
	assert.Nil(t, body.Data[0].Error)
	require.NotNil(t, body.Data[1].Error)
	assert.Equal(t, "UNDEFINED_VARIABLE", body.Data[1].Error.Code)

	tooMany := make([]string, service.MaxBatchExpressions+1)
	for i := range tooMany {
		tooMany[i] = "1"
	}
	payload, err := json.Marshal(CalculationBatchRequest{Expressions: tooMany})
	require.NoError(t, err)
	rr = doRequest(router, http.MethodPost, "/calculator/batch", string(payload))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertExpectations(t)
}
