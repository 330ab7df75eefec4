package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/securebank-ledger/internal/domain/report"
)

// RunStore keeps the latest report.MaxRunHistory runs of each job in memory, newest last
type RunStore struct {
	mu        sync.RWMutex
	runs      map[uuid.UUID][]*report.RunRecord
	maxPerJob int
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs:      make(map[uuid.UUID][]*report.RunRecord),
		maxPerJob: report.MaxRunHistory,
	}
}

func (s *RunStore) Record(ctx context.Context, run *report.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *run
	history := append(s.runs[run.JobID], &c)
	if over := len(history) - s.maxPerJob; over > 0 {
		// copy so the dropped records can be collected
		history = append([]*report.RunRecord(nil), history[over:]...)
	}
	s.runs[run.JobID] = history
	return nil
}

// ListByJob returns up to limit runs, newest first
func (s *RunStore) ListByJob(ctx context.Context, jobID uuid.UUID, limit int) ([]*report.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.runs[jobID]
	out := make([]*report.RunRecord, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		c := *history[i]
		out = append(out, &c)
	}
	return out, nil
}

var _ report.RunRepository = (*RunStore)(nil)
