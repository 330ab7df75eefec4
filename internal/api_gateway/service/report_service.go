package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	domain "github.com/securebank-ledger/internal/domain/report"
	"github.com/securebank-ledger/internal/report"
	"github.com/securebank-ledger/internal/scheduler"
)

const defaultRunHistoryLimit = 50

// ReportServiceImpl routes report requests to the engine and schedule requests to the scheduler
type ReportServiceImpl struct {
	engine    *report.Engine
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
}

func NewReportService(logger *slog.Logger, engine *report.Engine, sched *scheduler.Scheduler) ReportService {
	return &ReportServiceImpl{
		engine:    engine,
		scheduler: sched,
		logger:    logger,
	}
}

func (s *ReportServiceImpl) ListReports() []*report.Definition {
	return s.engine.List()
}

func (s *ReportServiceImpl) GenerateReport(ctx context.Context, name string, params map[string]string) (*report.Content, error) {
	return s.engine.Generate(ctx, name, params)
}

func (s *ReportServiceImpl) RenderCustom(ctx context.Context, templateName string, data map[string]interface{}) (*report.Content, error) {
	return s.engine.GenerateCustom(ctx, templateName, data)
}

func (s *ReportServiceImpl) ScheduleReport(ctx context.Context, name string, params map[string]string, scheduleExpression string) (*domain.ScheduledJob, error) {
	return s.scheduler.Schedule(ctx, name, params, scheduleExpression)
}

func (s *ReportServiceImpl) CancelSchedule(ctx context.Context, id uuid.UUID) error {
	return s.scheduler.Cancel(ctx, id)
}

func (s *ReportServiceImpl) GetSchedule(_ context.Context, id uuid.UUID) (*domain.ScheduledJob, error) {
	return s.scheduler.Get(id)
}

func (s *ReportServiceImpl) ListSchedules(_ context.Context) []*domain.ScheduledJob {
	return s.scheduler.List()
}

// ScheduleRuns returns the most recent runs first. A non-positive limit means the default.
func (s *ReportServiceImpl) ScheduleRuns(ctx context.Context, id uuid.UUID, limit int) ([]*domain.RunRecord, error) {
	if limit <= 0 {
		limit = defaultRunHistoryLimit
	}
	runs, err := s.scheduler.Runs(ctx, id, limit)
	if err != nil {
		s.logger.Warn("Failed to load run history", "job_id", id.String(), "error", err)
		return nil, err
	}
	return runs, nil
}
