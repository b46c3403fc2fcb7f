// Package worker plans queued teams in parallel. A run stops at the first
// team that fails.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/okian/rota/internal/adapters/mq/queue"
	"github.com/okian/rota/internal/domain/planner"
	"github.com/okian/rota/pkg/logger"
	"github.com/okian/rota/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Planner plans one team over a term.
type Planner interface {
	PlanTeam(ctx context.Context, team planner.Team, term planner.Term) (planner.TeamPlan, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Result is a finished job.
type Result struct {
	Seq  int
	Plan planner.TeamPlan
}

// Pool runs a fixed number of workers over a queue.
type Pool struct {
	planner Planner
	size    int
	name    string
	logger  logger.Logger
}

// NewPool creates a pool of workers planning with p.
func NewPool(p Planner, opts ...Option) *Pool {
	pool := &Pool{
		planner: p,
		size:    runtime.NumCPU(),
		name:    "worker",
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(pool)
	}
	return pool
}

// Run consumes q until it is closed and drained. Results are ordered by Seq.
// The first planning error cancels the remaining workers and is returned.
func (p *Pool) Run(ctx context.Context, q Queue) ([]Result, error) {
	g, gctx := errgroup.WithContext(ctx)
	jobs := q.Dequeue(gctx)

	var mu sync.Mutex
	var results []Result

	metrics.UpdateWorkerActiveCount(p.size)
	defer metrics.UpdateWorkerActiveCount(0)

	for i := 0; i < p.size; i++ {
		log := p.logger.Named(p.name + "-" + strconv.Itoa(i))
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case job, ok := <-jobs:
					if !ok {
						return nil
					}
					plan, err := p.process(gctx, log, job)
					if err != nil {
						return err
					}
					mu.Lock()
					results = append(results, Result{Seq: job.Seq, Plan: plan})
					mu.Unlock()
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.SortFunc(results, func(a, b Result) int { return a.Seq - b.Seq })
	return results, nil
}

// process plans a single job.
func (p *Pool) process(ctx context.Context, log logger.Logger, job queue.Job) (planner.TeamPlan, error) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	metrics.AddTeamsInFlight(1)
	defer metrics.AddTeamsInFlight(-1)

	plan, err := p.planner.PlanTeam(ctx, job.Team, job.Term)
	metrics.RecordWorkerJob()
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "plan_team")
		log.Error(ctx, "team planning failed",
			logger.String("team", string(job.Team.ID)),
			logger.Error(err))
		return planner.TeamPlan{}, fmt.Errorf("team %s: %w", job.Team.ID, err)
	}
	log.Debug(ctx, "team job done",
		logger.String("team", string(job.Team.ID)),
		logger.Int("sessions", len(plan.Sessions)),
		logger.Float64("ms", float64(time.Since(start).Microseconds())/1000))
	return plan, nil
}
