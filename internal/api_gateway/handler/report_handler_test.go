package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	domain "github.com/securebank-ledger/internal/domain/report"
	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/securebank-ledger/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newReportRouter(svc *MockReportService) http.Handler {
	h := NewReportHandler(testLogger(), svc)
	r := newTestRouter()
	r.GET("/reports", h.List)
	r.GET("/report/:name", h.Generate)
	r.POST("/report/custom", h.RenderCustom)
	r.POST("/report/schedule", h.Schedule)
	r.DELETE("/report/schedule/:id", h.Cancel)
	r.GET("/report-schedules", h.ListSchedules)
	r.GET("/report-schedules/:id", h.GetSchedule)
	r.GET("/report-schedules/:id/runs", h.Runs)
	return r
}

func TestReportHandler_Generate(t *testing.T) {
	t.Run("QueryBecomesParameters", func(t *testing.T) {
		svc := new(MockReportService)
		svc.On("GenerateReport", mock.Anything, "account-summary", map[string]string{"account": "ACC-1", "start_date": "2024-01-01"}).
			Return(&report.Content{ReportName: "account-summary", ContentType: "text/plain; charset=utf-8", Body: []byte("Net 10.00")}, nil).Once()

		rr := doRequest(newReportRouter(svc), http.MethodGet, "/report/account-summary?account=ACC-1&start_date=2024-01-01&account=ignored", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
		assert.Equal(t, "account-summary", rr.Header().Get("X-Report-Name"))
		assert.Equal(t, "Net 10.00", rr.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("UnknownReport", func(t *testing.T) {
		svc := new(MockReportService)
		svc.On("GenerateReport", mock.Anything, "shell", map[string]string{}).
			Return(nil, shared.ErrNotFound{Resource: "report", ID: "shell"}).Once()

		rr := doRequest(newReportRouter(svc), http.MethodGet, "/report/shell", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("InvalidParameterCarriesField", func(t *testing.T) {
		svc := new(MockReportService)
		svc.On("GenerateReport", mock.Anything, "account-summary", mock.Anything).
			Return(nil, shared.ErrInvalidArgument{Field: "formula", Reason: "bad"}).Once()

		rr := doRequest(newReportRouter(svc), http.MethodGet, "/report/account-summary?formula=(", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		body := decode[json.RawMessage](t, rr.Body.Bytes())
		assert.Equal(t, "formula", body.Error.Field)
	})
}

func TestReportHandler_ListAndCustom(t *testing.T) {
	svc := new(MockReportService)
	svc.On("ListReports").Return([]*report.Definition{
		report.NewDefinition("account-summary", "1", "Totals", []report.Param{{Name: "account", Type: report.ParamString, Required: true}}, nil),
	}).Once()
	svc.On("RenderCustom", mock.Anything, "notice", map[string]interface{}{"title": "Hello"}).
		Return(&report.Content{ReportName: "notice", ContentType: "text/html; charset=utf-8", Body: []byte("<h1>Hello</h1>")}, nil).Once()
	svc.On("RenderCustom", mock.Anything, "missing", mock.Anything).
		Return(nil, shared.ErrNotFound{Resource: "template", ID: "missing"}).Once()
	router := newReportRouter(svc)

	rr := doRequest(router, http.MethodGet, "/reports", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	body := decode[[]map[string]interface{}](t, rr.Body.Bytes())
	require.Len(t, body.Data, 1)
	assert.Equal(t, "account-summary", body.Data[0]["name"])
	assert.NotNil(t, body.Data[0]["parameters"])

	rr = doRequest(router, http.MethodPost, "/report/custom", `{"template":"notice","data":{"title":"Hello"}}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "<h1>Hello</h1>", rr.Body.String())

	rr = doRequest(router, http.MethodPost, "/report/custom", `{"template":"missing"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(router, http.MethodPost, "/report/custom", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReportHandler_Schedules(t *testing.T) {
	job := &domain.ScheduledJob{
		ID:                 uuid.New(),
		ReportName:         "account-summary",
		Parameters:         map[string]string{"account": "ACC-1"},
		ScheduleExpression: "@every 1m",
		State:              domain.JobStateScheduled,
		CreatedAt:          time.Now().UTC(),
	}

	t.Run("Create", func(t *testing.T) {
		svc := new(MockReportService)
		svc.On("ScheduleReport", mock.Anything, "account-summary", map[string]string{"account": "ACC-1"}, "@every 1m").Return(job, nil).Once()

		rr := doRequest(newReportRouter(svc), http.MethodPost, "/report/schedule",
			`{"reportName":"account-summary","parameters":{"account":"ACC-1"},"scheduleExpression":"@every 1m"}`)
		assert.Equal(t, http.StatusCreated, rr.Code)
		body := decode[domain.ScheduledJob](t, rr.Body.Bytes())
		assert.Equal(t, job.ID, body.Data.ID)
		assert.Equal(t, domain.JobStateScheduled, body.Data.State)
	})

	t.Run("CreateWithBadExpression", func(t *testing.T) {
		svc := new(MockReportService)
		svc.On("ScheduleReport", mock.Anything, "account-summary", mock.Anything, "sometimes").
			Return(nil, shared.ErrInvalidArgument{Field: "schedule_expression", Reason: "bad"}).Once()

		rr := doRequest(newReportRouter(svc), http.MethodPost, "/report/schedule",
			`{"reportName":"account-summary","scheduleExpression":"sometimes"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("CreateMissingFields", func(t *testing.T) {
		svc := new(MockReportService)
		rr := doRequest(newReportRouter(svc), http.MethodPost, "/report/schedule", `{"reportName":"account-summary"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		svc.AssertNotCalled(t, "ScheduleReport", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Cancel", func(t *testing.T) {
		svc := new(MockReportService)
		svc.On("CancelSchedule", mock.Anything, job.ID).Return(nil).Once()
		missing := uuid.New()
		svc.On("CancelSchedule", mock.Anything, missing).Return(shared.ErrNotFound{Resource: "scheduled job", ID: missing.String()}).Once()
		router := newReportRouter(svc)

		rr := doRequest(router, http.MethodDelete, "/report/schedule/"+job.ID.String(), "")
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = doRequest(router, http.MethodDelete, "/report/schedule/"+missing.String(), "")
		assert.Equal(t, http.StatusNotFound, rr.Code)

		rr = doRequest(router, http.MethodDelete, "/report/schedule/nope", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Inspect", func(t *testing.T) {
		svc := new(MockReportService)
		svc.On("ListSchedules", mock.Anything).Return([]*domain.ScheduledJob{job}).Once()
		svc.On("GetSchedule", mock.Anything, job.ID).Return(job, nil).Once()
		svc.On("ScheduleRuns", mock.Anything, job.ID, 50).Return([]*domain.RunRecord{
			{ID: uuid.New(), JobID: job.ID, Outcome: domain.RunOutcomeCompleted},
		}, nil).Once()
		svc.On("ScheduleRuns", mock.Anything, job.ID, 2).Return([]*domain.RunRecord{}, nil).Once()
		router := newReportRouter(svc)

		rr := doRequest(router, http.MethodGet, "/report-schedules", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		list := decode[[]domain.ScheduledJob](t, rr.Body.Bytes())
		assert.Len(t, list.Data, 1)

		rr = doRequest(router, http.MethodGet, "/report-schedules/"+job.ID.String(), "")
		assert.Equal(t, http.StatusOK, rr.Code)

		rr = doRequest(router, http.MethodGet, "/report-schedules/"+job.ID.String()+"/runs", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		runs := decode[[]domain.RunRecord](t, rr.Body.Bytes())
		require.Len(t, runs.Data, 1)
		assert.Equal(t, domain.RunOutcomeCompleted, runs.Data[0].Outcome)

		rr = doRequest(router, http.MethodGet, "/report-schedules/"+job.ID.String()+"/runs?limit=2", "")
		assert.Equal(t, http.StatusOK, rr.Code)

		rr = doRequest(router, http.MethodGet, "/report-schedules/"+job.ID.String()+"/runs?limit=0", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		svc.AssertExpectations(t)
	})
}
