package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rota/internal/adapters/report"
	"github.com/puzpuzpuz/xsync/v4"
)

// PlanStore is the in-memory Store.
type PlanStore struct {
	runs   *xsync.Map[uuid.UUID, Run]
	now    func() time.Time
	retain int

	mu       sync.Mutex
	finished []uuid.UUID
}

var _ Store = (*PlanStore)(nil)

// NewPlanStore creates an empty PlanStore.
func NewPlanStore(opts ...Option) *PlanStore {
	s := &PlanStore{
		runs: xsync.NewMap[uuid.UUID, Run](),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a pending run.
func (s *PlanStore) Create(_ context.Context) Run {
	r := Run{ID: uuid.New(), Status: StatusPending, Created: s.now()}
	s.runs.Store(r.ID, r)
	return r
}

// Complete stores the report of a pending run.
func (s *PlanStore) Complete(_ context.Context, id uuid.UUID, rep report.Report) error {
	return s.finish(id, func(r *Run) {
		r.Status = StatusDone
		r.Report = &rep
	})
}

// Fail marks a pending run failed.
func (s *PlanStore) Fail(_ context.Context, id uuid.UUID, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: fail without cause", ErrInvalidStatus)
	}
	return s.finish(id, func(r *Run) {
		r.Status = StatusFailed
		r.Error = cause.Error()
	})
}

func (s *PlanStore) finish(id uuid.UUID, apply func(*Run)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs.Load(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if r.Status != StatusPending {
		return fmt.Errorf("%w: %s is %s", ErrRunFinished, id, r.Status)
	}
	apply(&r)
	r.Finished = s.now()
	s.runs.Store(id, r)

	s.finished = append(s.finished, id)
	if s.retain > 0 {
		for len(s.finished) > s.retain {
			s.runs.Delete(s.finished[0])
			s.finished = s.finished[1:]
		}
	}
	return nil
}

// Get returns the run with id.
func (s *PlanStore) Get(_ context.Context, id uuid.UUID) (Run, error) {
	r, ok := s.runs.Load(id)
	if !ok {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, nil
}

// Count returns the number of runs per status.
func (s *PlanStore) Count(_ context.Context) map[Status]int {
	out := make(map[Status]int, 3)
	s.runs.Range(func(_ uuid.UUID, r Run) bool {
		out[r.Status]++
		return true
	})
	return out
}
