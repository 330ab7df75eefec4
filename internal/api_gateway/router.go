package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/securebank-ledger/internal/api_gateway/handler"
	"github.com/securebank-ledger/internal/api_gateway/middleware"
)

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Transactions *handler.TransactionHandler
	Reports      *handler.ReportHandler
	Calculator   *handler.CalculatorHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, h Handlers) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	{
		// Ledger operations
		v1.POST("/transfer", h.Transactions.Transfer)
		v1.GET("/transaction/:id", h.Transactions.GetByID)
		v1.POST("/transaction/:id/note", h.Transactions.Annotate)
		v1.GET("/transactions/:accountId", h.Transactions.ListByAccount)
		v1.GET("/export/:accountId/:format", h.Transactions.Export)
		v1.POST("/batch-import", h.Transactions.ImportBatch)
		v1.POST("/batch-import/async", h.Transactions.SubmitBatch)

		// Reports
		v1.GET("/reports", h.Reports.List)
		v1.GET("/report/:name", h.Reports.Generate)
		v1.POST("/report/custom", h.Reports.RenderCustom)
		v1.POST("/report/schedule", h.Reports.Schedule)
		v1.DELETE("/report/schedule/:id", h.Reports.Cancel)

		schedules := v1.Group("/report-schedules")
		{
			schedules.GET("", h.Reports.ListSchedules)
			schedules.GET("/:id", h.Reports.GetSchedule)
			schedules.GET("/:id/runs", h.Reports.Runs)
		}

		// Calculator
		calculator := v1.Group("/calculator")
		{
			calculator.POST("/evaluate", h.Calculator.Evaluate)
			calculator.POST("/interest", h.Calculator.Interest)
			calculator.POST("/batch", h.Calculator.Batch)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		handler.RespondNotFound(c, "")
	})

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
