package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/securebank-ledger/internal/api_gateway/service"
	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/securebank-ledger/internal/report"
)

// ReportHandler handles report generation and report schedules
type ReportHandler struct {
	reportService service.ReportService
	logger        *slog.Logger
}

func NewReportHandler(logger *slog.Logger, reportService service.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		logger:        logger,
	}
}

// List returns every registered report with its parameter schema
func (h *ReportHandler) List(c *gin.Context) {
	defs := h.reportService.ListReports()
	RespondWithList(c, defs, len(defs))
}

// Generate runs a registered report. Query parameters become report parameters;
// only the first value of a repeated key is used.
func (h *ReportHandler) Generate(c *gin.Context) {
	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	content, err := h.reportService.GenerateReport(c.Request.Context(), c.Param("name"), params)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	h.writeContent(c, content)
}

// RenderCustom renders one of the built-in templates against caller data
func (h *ReportHandler) RenderCustom(c *gin.Context) {
	var req CustomReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: template is required")
		return
	}

	content, err := h.reportService.RenderCustom(c.Request.Context(), req.Template, req.Data)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	h.writeContent(c, content)
}

// Schedule registers a recurring report run
func (h *ReportHandler) Schedule(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: reportName and scheduleExpression are required")
		return
	}

	job, err := h.reportService.ScheduleReport(c.Request.Context(), req.ReportName, req.Parameters, req.ScheduleExpression)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondCreated(c, job)
}

// Cancel stops future runs of a job. A run already in progress finishes.
func (h *ReportHandler) Cancel(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	if err := h.reportService.CancelSchedule(c.Request.Context(), id); err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondNoContent(c)
}

func (h *ReportHandler) ListSchedules(c *gin.Context) {
	jobs := h.reportService.ListSchedules(c.Request.Context())
	RespondWithList(c, jobs, len(jobs))
}

func (h *ReportHandler) GetSchedule(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	job, err := h.reportService.GetSchedule(c.Request.Context(), id)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, job)
}

// Runs returns the run history of a job, newest first
func (h *ReportHandler) Runs(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}

	var params RunHistoryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondWithDomainError(c, h.logger, shared.ErrInvalidArgument{Field: "limit", Reason: "must be between 1 and 500"})
		return
	}

	runs, err := h.reportService.ScheduleRuns(c.Request.Context(), id, params.Limit)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondWithList(c, runs, len(runs))
}

func (h *ReportHandler) writeContent(c *gin.Context, content *report.Content) {
	c.Header("X-Report-Name", content.ReportName)
	c.Data(http.StatusOK, content.ContentType, content.Body)
}

func (h *ReportHandler) jobID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondWithDomainError(c, h.logger, shared.ErrInvalidArgument{Field: "id", Reason: "must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}
