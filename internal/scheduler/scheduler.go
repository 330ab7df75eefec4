// Package scheduler triggers report generation on recurring cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/robfig/cron/v3"
	"github.com/securebank-ledger/internal/config"
	domain "github.com/securebank-ledger/internal/domain/report"
	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/securebank-ledger/internal/report"
)

const recordTimeout = 5 * time.Second

// Generator is the part of the report engine the scheduler drives
type Generator interface {
	Validate(name string, params map[string]string) error
	Generate(ctx context.Context, name string, params map[string]string) (*report.Content, error)
}

var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule accepts 5-field or 6-field (leading seconds) cron expressions and descriptors like "@every 1s"
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := scheduleParser.Parse(strings.TrimSpace(expr))
	if err != nil {
		return nil, shared.ErrInvalidArgument{Field: "schedule_expression", Reason: err.Error()}
	}
	return sched, nil
}

type entry struct {
	job      *domain.ScheduledJob
	schedule cron.Schedule
	inFlight bool
}

// Scheduler owns the registry of scheduled jobs. No other component mutates job state.
type Scheduler struct {
	generator      Generator
	runs           domain.RunRepository
	pool           *ants.Pool
	logger         *slog.Logger
	tickInterval   time.Duration
	maxRunDuration time.Duration
	now            func() time.Time

	mu   sync.Mutex
	jobs map[uuid.UUID]*entry

	running sync.WaitGroup
	base    context.Context
	stop    context.CancelFunc
	done    chan struct{}
}

func NewScheduler(
	cfg *config.SchedulerConfig,
	generator Generator,
	runs domain.RunRepository,
	logger *slog.Logger,
) (*Scheduler, error) {
	pool, err := ants.NewPool(cfg.WorkerPoolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler worker pool: %w", err)
	}
	return &Scheduler{
		generator:      generator,
		runs:           runs,
		pool:           pool,
		logger:         logger,
		tickInterval:   cfg.TickInterval,
		maxRunDuration: cfg.MaxRunDuration,
		now:            func() time.Time { return time.Now().UTC() },
		jobs:           make(map[uuid.UUID]*entry),
	}, nil
}

// Schedule registers a recurring job after checking the report name, parameters and expression
func (s *Scheduler) Schedule(ctx context.Context, reportName string, params map[string]string, expr string) (*domain.ScheduledJob, error) {
	if err := s.generator.Validate(reportName, params); err != nil {
		return nil, err
	}
	sched, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next := sched.Next(now)
	job := &domain.ScheduledJob{
		ID:                 uuid.New(),
		ReportName:         reportName,
		Parameters:         copyParams(params),
		ScheduleExpression: strings.TrimSpace(expr),
		State:              domain.JobStateScheduled,
		CreatedAt:          now,
		NextRunAt:          &next,
	}

	s.mu.Lock()
	s.jobs[job.ID] = &entry{job: job, schedule: sched}
	out := job.Clone()
	s.mu.Unlock()

	s.logger.Info("Report job scheduled",
		"job_id", job.ID.String(),
		"report", reportName,
		"schedule", job.ScheduleExpression,
		"next_run_at", next,
		"correlation_id", shared.CorrelationIDFromContext(ctx),
	)
	return out, nil
}

// Cancel stops future triggers. A run already in progress finishes first,
// after which the job becomes cancelled.
func (s *Scheduler) Cancel(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok || e.job.State.Terminal() || e.job.CancelRequested {
		return errJobNotFound(id)
	}

	e.job.NextRunAt = nil
	if e.inFlight {
		e.job.CancelRequested = true
	} else {
		e.job.State = domain.JobStateCancelled
	}

	s.logger.Info("Report job cancelled",
		"job_id", id.String(),
		"in_flight", e.inFlight,
		"correlation_id", shared.CorrelationIDFromContext(ctx),
	)
	return nil
}

// Get returns a snapshot of one job
func (s *Scheduler) Get(id uuid.UUID) (*domain.ScheduledJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return nil, errJobNotFound(id)
	}
	return e.job.Clone(), nil
}

// List returns snapshots of every job, oldest first
func (s *Scheduler) List() []*domain.ScheduledJob {
	s.mu.Lock()
	jobs := make([]*domain.ScheduledJob, 0, len(s.jobs))
	for _, e := range s.jobs {
		jobs = append(jobs, e.job.Clone())
	}
	s.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID.String() < jobs[j].ID.String()
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}

// Runs returns the most recent run records of a job
func (s *Scheduler) Runs(ctx context.Context, id uuid.UUID, limit int) ([]*domain.RunRecord, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	return s.runs.ListByJob(ctx, id, limit)
}

// Start launches the trigger loop. It returns immediately.
// Cancelling ctx stops new triggers only. Runs already started end at their own deadline.
func (s *Scheduler) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	s.base = context.WithoutCancel(ctx)
	s.stop = cancel
	s.done = make(chan struct{})

	s.logger.Info("Starting report scheduler",
		"tick_interval", s.tickInterval.String(),
		"max_run_duration", s.maxRunDuration.String(),
		"worker_pool_size", s.pool.Cap(),
	)

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				s.logger.Info("Report scheduler stopping due to context cancellation.")
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Shutdown stops the trigger loop and waits for in-flight runs, which keep their own deadline
func (s *Scheduler) Shutdown() {
	if s.stop != nil {
		s.stop()
		<-s.done
	}
	s.running.Wait()
	s.logger.Info("Shutting down scheduler worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

func (s *Scheduler) tick() {
	now := s.now()

	s.mu.Lock()
	var due []*domain.ScheduledJob
	var skipped []*domain.ScheduledJob
	for _, e := range s.jobs {
		job := e.job
		if job.State.Terminal() || job.CancelRequested || job.NextRunAt == nil || job.NextRunAt.After(now) {
			continue
		}

		next := e.schedule.Next(now)
		job.NextRunAt = &next
		if next.IsZero() {
			job.NextRunAt = nil
		}

		if e.inFlight {
			job.SkippedCount++
			skipped = append(skipped, job.Clone())
			continue
		}

		e.inFlight = true
		job.State = domain.JobStateRunning
		job.LastRunAt = &now
		job.RunCount++
		due = append(due, job.Clone())
	}
	s.mu.Unlock()

	for _, job := range skipped {
		overrun := shared.ErrSchedulerOverrun{JobID: job.ID.String()}
		s.logger.Warn("Skipping trigger, previous run still in progress",
			"job_id", job.ID.String(),
			"report", job.ReportName,
			"error_kind", string(overrun.Kind()),
			"skipped_count", job.SkippedCount,
		)
		s.record(job, domain.RunOutcomeSkipped, now, now, nil, overrun)
	}

	for _, job := range due {
		s.submit(s.base, job, now)
	}
}

func (s *Scheduler) submit(ctx context.Context, job *domain.ScheduledJob, startedAt time.Time) {
	s.running.Add(1)
	err := s.pool.Submit(func() {
		defer s.running.Done()
		s.execute(ctx, job, startedAt)
	})
	if err != nil {
		s.running.Done()
		s.logger.Error("Failed to submit report run to worker pool", "job_id", job.ID.String(), "error", err)
		s.finish(job, startedAt, nil, fmt.Errorf("worker pool rejected run: %w", err))
	}
}

type result struct {
	content *report.Content
	err     error
}

func (s *Scheduler) execute(ctx context.Context, job *domain.ScheduledJob, startedAt time.Time) {
	runCtx, cancel := context.WithTimeout(ctx, s.maxRunDuration)
	defer cancel()

	s.logger.Info("Report run started", "job_id", job.ID.String(), "report", job.ReportName)

	resultCh := make(chan result, 1)
	go func() {
		content, err := s.generator.Generate(runCtx, job.ReportName, job.Parameters)
		resultCh <- result{content: content, err: err}
	}()

	select {
	case r := <-resultCh:
		s.finish(job, startedAt, r.content, r.err)
	case <-runCtx.Done():
		outcome := domain.RunOutcomeFailed
		runErr := fmt.Errorf("run interrupted: %w", runCtx.Err())
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			outcome = domain.RunOutcomeTimedOut
			runErr = fmt.Errorf("run exceeded %s: %w", s.maxRunDuration, runCtx.Err())
		}
		s.markFailed(job, outcome, runErr)
		s.record(job, outcome, startedAt, s.now(), nil, runErr)
		// the job stays in flight until the generator actually returns
		<-resultCh
		s.release(job.ID)
	}
}

func (s *Scheduler) finish(job *domain.ScheduledJob, startedAt time.Time, content *report.Content, err error) {
	outcome := domain.RunOutcomeCompleted
	if err != nil {
		outcome = domain.RunOutcomeFailed
	}
	s.record(job, outcome, startedAt, s.now(), content, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[job.ID]
	if !ok {
		return
	}
	e.job.LastOutcome = outcome
	e.job.LastError = ""
	if err != nil {
		e.job.LastError = err.Error()
	}
	e.inFlight = false
	s.settle(e, outcome)
}

// markFailed settles the job while the generator is still unwinding
func (s *Scheduler) markFailed(job *domain.ScheduledJob, outcome domain.RunOutcome, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[job.ID]
	if !ok {
		return
	}
	e.job.LastOutcome = outcome
	e.job.LastError = err.Error()
	s.settle(e, outcome)
}

func (s *Scheduler) release(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.jobs[id]; ok {
		e.inFlight = false
		s.settle(e, e.job.LastOutcome)
	}
}

// settle moves a job out of running. Caller holds s.mu.
func (s *Scheduler) settle(e *entry, outcome domain.RunOutcome) {
	switch {
	case e.job.CancelRequested && !e.inFlight:
		e.job.State = domain.JobStateCancelled
		e.job.CancelRequested = false
	case e.job.CancelRequested:
		// wait for the generator to return
	case e.job.NextRunAt != nil:
		e.job.State = domain.JobStateScheduled
	case outcome == domain.RunOutcomeCompleted:
		e.job.State = domain.JobStateCompleted
	default:
		e.job.State = domain.JobStateFailed
	}
}

func (s *Scheduler) record(job *domain.ScheduledJob, outcome domain.RunOutcome, startedAt, finishedAt time.Time, content *report.Content, err error) {
	run := &domain.RunRecord{
		ID:         uuid.New(),
		JobID:      job.ID,
		ReportName: job.ReportName,
		Outcome:    outcome,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
	if content != nil {
		run.ContentType = content.ContentType
		run.ContentSize = len(content.Body)
	}
	if err != nil {
		run.Error = err.Error()
	}

	logger := s.logger.With("job_id", job.ID.String(), "report", job.ReportName, "outcome", string(outcome))
	if outcome == domain.RunOutcomeCompleted {
		logger.Info("Report run finished", "duration", run.Duration())
	} else if outcome != domain.RunOutcomeSkipped {
		logger.Warn("Report run did not complete", "duration", run.Duration(), "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if recErr := s.runs.Record(ctx, run); recErr != nil {
		logger.Error("Failed to record report run", "error", recErr)
	}
}

func errJobNotFound(id uuid.UUID) error {
	return shared.ErrNotFound{Resource: "scheduled job", ID: id.String()}
}

func copyParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
