package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/securebank-ledger/internal/api_gateway/middleware"
	"github.com/securebank-ledger/internal/api_gateway/service"
	"github.com/securebank-ledger/internal/domain/ledger"
	domain "github.com/securebank-ledger/internal/domain/report"
	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/securebank-ledger/internal/export"
	"github.com/securebank-ledger/internal/report"
	processor "github.com/securebank-ledger/internal/transaction_processor/service"
	"github.com/stretchr/testify/mock"
)

type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) Transfer(ctx context.Context, req *shared.TransferRequest) (*ledger.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionService) GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionService) ListTransactions(ctx context.Context, accountID, sortKey, order string) ([]*ledger.Transaction, error) {
	args := m.Called(ctx, accountID, sortKey, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionService) AnnotateTransaction(ctx context.Context, id uuid.UUID, note string) (*ledger.Transaction, error) {
	args := m.Called(ctx, id, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionService) Export(ctx context.Context, accountID, format, startDate, endDate string) (*export.Document, error) {
	args := m.Called(ctx, accountID, format, startDate, endDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*export.Document), args.Error(1)
}

func (m *MockTransactionService) ImportBatch(ctx context.Context, reqs []shared.TransferRequest) (*processor.BatchImportResult, error) {
	args := m.Called(ctx, reqs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.BatchImportResult), args.Error(1)
}

func (m *MockTransactionService) SubmitBatch(ctx context.Context, reqs []shared.TransferRequest) (string, error) {
	args := m.Called(ctx, reqs)
	return args.String(0), args.Error(1)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) ListReports() []*report.Definition {
	args := m.Called()
	return args.Get(0).([]*report.Definition)
}

func (m *MockReportService) GenerateReport(ctx context.Context, name string, params map[string]string) (*report.Content, error) {
	args := m.Called(ctx, name, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.Content), args.Error(1)
}

func (m *MockReportService) RenderCustom(ctx context.Context, templateName string, data map[string]interface{}) (*report.Content, error) {
	args := m.Called(ctx, templateName, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.Content), args.Error(1)
}

func (m *MockReportService) ScheduleReport(ctx context.Context, name string, params map[string]string, scheduleExpression string) (*domain.ScheduledJob, error) {
	args := m.Called(ctx, name, params, scheduleExpression)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScheduledJob), args.Error(1)
}

func (m *MockReportService) CancelSchedule(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockReportService) GetSchedule(ctx context.Context, id uuid.UUID) (*domain.ScheduledJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScheduledJob), args.Error(1)
}

func (m *MockReportService) ListSchedules(ctx context.Context) []*domain.ScheduledJob {
	args := m.Called(ctx)
	return args.Get(0).([]*domain.ScheduledJob)
}

func (m *MockReportService) ScheduleRuns(ctx context.Context, id uuid.UUID, limit int) ([]*domain.RunRecord, error) {
	args := m.Called(ctx, id, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RunRecord), args.Error(1)
}

type MockCalculatorService struct {
	mock.Mock
}

func (m *MockCalculatorService) Evaluate(ctx context.Context, expr string, variables map[string]float64) (float64, error) {
	args := m.Called(ctx, expr, variables)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockCalculatorService) Interest(ctx context.Context, req service.InterestRequest) (float64, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockCalculatorService) EvaluateBatch(ctx context.Context, exprs []string) []service.EvaluationResult {
	args := m.Called(ctx, exprs)
	return args.Get(0).([]service.EvaluationResult)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestRouter mounts the correlation middleware so responses carry an id
func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID())
	return r
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}
