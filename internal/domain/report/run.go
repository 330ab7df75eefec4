package report

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunOutcome is the result of one trigger of a scheduled job
type RunOutcome string

const (
	RunOutcomeCompleted RunOutcome = "completed"
	RunOutcomeFailed    RunOutcome = "failed"
	RunOutcomeTimedOut  RunOutcome = "timed_out"
	RunOutcomeSkipped   RunOutcome = "skipped"
)

// RunRecord is the persisted history entry for one trigger
type RunRecord struct {
	ID          uuid.UUID  `json:"id" bson:"id"`
	JobID       uuid.UUID  `json:"job_id" bson:"job_id"`
	ReportName  string     `json:"report_name" bson:"report_name"`
	Outcome     RunOutcome `json:"outcome" bson:"outcome"`
	Error       string     `json:"error,omitempty" bson:"error,omitempty"`
	ContentType string     `json:"content_type,omitempty" bson:"content_type,omitempty"`
	ContentSize int        `json:"content_size" bson:"content_size"`
	StartedAt   time.Time  `json:"started_at" bson:"started_at"`
	FinishedAt  time.Time  `json:"finished_at" bson:"finished_at"`
}

// Duration is the wall time of the run
func (r *RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// MaxRunHistory is the most runs listed for one job
const MaxRunHistory = 500

// RunRepository stores run history. Writes must never block the scheduler for long.
type RunRepository interface {
	Record(ctx context.Context, run *RunRecord) error
	ListByJob(ctx context.Context, jobID uuid.UUID, limit int) ([]*RunRecord, error)
}
