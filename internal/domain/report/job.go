// Package report holds the scheduled report job model and its run history.
package report

import (
	"time"

	"github.com/google/uuid"
)

// JobState is the lifecycle state of a scheduled job
type JobState string

const (
	JobStateScheduled JobState = "scheduled"
	JobStateRunning   JobState = "running"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
	JobStateCancelled JobState = "cancelled"
)

// Terminal reports whether no further trigger can fire for the job
func (s JobState) Terminal() bool {
	return s == JobStateCancelled
}

// ScheduledJob is a recurring trigger bound to a report and its parameters
type ScheduledJob struct {
	ID                 uuid.UUID         `json:"id"`
	ReportName         string            `json:"report_name"`
	Parameters         map[string]string `json:"parameters"`
	ScheduleExpression string            `json:"schedule_expression"`
	State              JobState          `json:"state"`
	CreatedAt          time.Time         `json:"created_at"`
	LastRunAt          *time.Time        `json:"last_run_at,omitempty"`
	NextRunAt          *time.Time        `json:"next_run_at,omitempty"`
	LastOutcome        RunOutcome        `json:"last_outcome,omitempty"`
	LastError          string            `json:"last_error,omitempty"`
	RunCount           int               `json:"run_count"`
	SkippedCount       int               `json:"skipped_count"`
	CancelRequested    bool              `json:"cancel_requested,omitempty"`
}

// Clone returns a copy that shares nothing mutable with the receiver
func (j *ScheduledJob) Clone() *ScheduledJob {
	c := *j
	c.Parameters = make(map[string]string, len(j.Parameters))
	for k, v := range j.Parameters {
		c.Parameters[k] = v
	}
	if j.LastRunAt != nil {
		t := *j.LastRunAt
		c.LastRunAt = &t
	}
	if j.NextRunAt != nil {
		t := *j.NextRunAt
		c.NextRunAt = &t
	}
	return &c
}
