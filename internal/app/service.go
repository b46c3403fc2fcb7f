// Package service wires the planner, the team job queue, the worker pool and
// the plan store into runs, for both the batch command and the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/okian/rota/internal/adapters/mq/queue"
	"github.com/okian/rota/internal/adapters/mq/worker"
	"github.com/okian/rota/internal/adapters/report"
	"github.com/okian/rota/internal/adapters/repository"
	"github.com/okian/rota/internal/adapters/roster"
	"github.com/okian/rota/internal/config"
	"github.com/okian/rota/internal/domain/matching"
	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/internal/domain/planner"
	"github.com/okian/rota/pkg/logger"
	"github.com/okian/rota/pkg/metrics"
)

// Service runs plans.
type Service struct {
	mu sync.RWMutex

	store repository.Store

	// Configuration
	workerCount int
	queueSize   int
	seed        int64
	capacity    int
	ratio       float64
	retries     int
	reserved    map[model.DutyLabel]model.PositionID
	rotation    planner.Rotation

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of teams planned in parallel.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of teams per run.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSeed sets the run seed.
func WithSeed(seed int64) Option {
	return func(s *Service) { s.seed = seed }
}

// WithEngine sets the default session capacity, the capacity ratio guard and
// the matching retry budget.
func WithEngine(capacity int, ratio float64, retries int) Option {
	return func(s *Service) {
		s.capacity = capacity
		s.ratio = ratio
		s.retries = retries
	}
}

// WithReserved sets the default reserved position per duty.
func WithReserved(r map[model.DutyLabel]model.PositionID) Option {
	return func(s *Service) { s.reserved = r }
}

// WithRotation sets the emergency rotation.
func WithRotation(r planner.Rotation) Option {
	return func(s *Service) { s.rotation = r }
}

// WithStore sets the plan run store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// FromConfig translates cfg into service options.
func FromConfig(cfg *config.Config) ([]Option, error) {
	rot, err := Rotation(cfg.Rotation)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithSeed(cfg.Seed),
		WithEngine(cfg.Capacity, cfg.RatioGuard, cfg.FullRetries),
		WithReserved(map[model.DutyLabel]model.PositionID{
			matching.Emergency.Label: model.PositionID(cfg.Reserved.Emergency),
			matching.Overflow.Label:  model.PositionID(cfg.Reserved.Overflow),
		}),
		WithRotation(rot),
	}, nil
}

// Rotation converts configured weekly tables.
func Rotation(weeks [][]config.RotationEntry) (planner.Rotation, error) {
	out := make(planner.Rotation, 0, len(weeks))
	for i, week := range weeks {
		table := make(planner.WeekTable, len(week))
		for _, e := range week {
			day, err := config.ParseWeekday(e.Weekday)
			if err != nil {
				return nil, fmt.Errorf("%w: rotation week %d: %w", config.ErrInvalidConfig, i, err)
			}
			period, err := model.ParsePeriod(e.Period)
			if err != nil {
				return nil, fmt.Errorf("%w: rotation week %d: %w", config.ErrInvalidConfig, i, err)
			}
			slot := planner.RotationSlot{Weekday: day, Period: period}
			for _, t := range e.Teams {
				table[slot] = append(table[slot], model.TeamID(strings.TrimSpace(t)))
			}
		}
		out = append(out, table)
	}
	return out, nil
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   queue.DefaultCapacity,
		seed:        42,
		capacity:    planner.DefaultCapacity,
		ratio:       0.375,
		retries:     matching.DefaultRetries,
		logger:      nil, // replaced on Start
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start prepares the service for runs.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		s.store = repository.NewPlanStore()
	}
	s.started = true
	s.logger.Info(ctx, "plan service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("rotationWeeks", len(s.rotation)))
	return nil
}

// Stop marks the service stopped. Runs in flight finish on their own.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "plan service stopped")
}

// Plan plans every team of doc and returns the report. It does not touch
// the plan store.
func (s *Service) Plan(ctx context.Context, doc *roster.Document) (report.Report, error) {
	if err := s.ready(); err != nil {
		return report.Report{}, err
	}
	return s.plan(ctx, uuid.New(), doc)
}

// Submit plans doc as a stored run. A failed run is stored too and returned
// along with its error.
func (s *Service) Submit(ctx context.Context, doc *roster.Document) (repository.Run, error) {
	if err := s.ready(); err != nil {
		return repository.Run{}, err
	}
	run := s.store.Create(ctx)
	rep, err := s.plan(ctx, run.ID, doc)
	if err != nil {
		if ferr := s.store.Fail(ctx, run.ID, err); ferr != nil {
			return repository.Run{}, ferr
		}
		failed, _ := s.store.Get(ctx, run.ID)
		return failed, err
	}
	if err := s.store.Complete(ctx, run.ID, rep); err != nil {
		return repository.Run{}, err
	}
	return s.store.Get(ctx, run.ID)
}

// Run returns a stored run.
func (s *Service) Run(ctx context.Context, id uuid.UUID) (repository.Run, error) {
	if err := s.ready(); err != nil {
		return repository.Run{}, err
	}
	return s.store.Get(ctx, id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"seed":        s.seed,
	}
	if s.started {
		for status, n := range s.store.Count(context.Background()) {
			stats["runs_"+string(status)] = n
		}
	}
	return stats
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func (s *Service) plan(ctx context.Context, id uuid.UUID, doc *roster.Document) (report.Report, error) {
	if err := ctx.Err(); err != nil {
		return report.Report{}, err
	}
	log := s.logger.With(logger.String("run", id.String()))

	in, err := doc.Build(roster.WithReserved(s.reserved))
	if err != nil {
		metrics.RecordPlan("invalid")
		return report.Report{}, err
	}

	p := planner.New(in.Roster, in.Calendar, repository.NewDutyRoster(),
		planner.WithSeed(s.seed),
		planner.WithCapacity(s.capacity),
		planner.WithRatio(s.ratio),
		planner.WithRetries(s.retries),
		planner.WithRotation(s.rotation),
		planner.WithAvailability(in.Absences),
		planner.WithMoratorium(in.Moratorium),
		planner.WithLogger(log.Named("planner")),
	)

	q := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	seq := 0
	for _, team := range in.Teams {
		if len(in.Roster.Team(team.ID)) == 0 {
			log.Warn(ctx, "team has no workers, skipping", logger.String("team", string(team.ID)))
			continue
		}
		if !q.Enqueue(ctx, queue.Job{Seq: seq, Team: team, Term: in.Term}) {
			_ = q.Close()
			metrics.RecordPlan("rejected")
			return report.Report{}, fmt.Errorf("%w: %d teams, queue size %d", queue.ErrQueueFull, len(in.Teams), s.queueSize)
		}
		seq++
	}
	_ = q.Close()

	pool := worker.NewPool(p, worker.WithSize(s.workerCount), worker.WithLogger(log.Named("worker-pool")))
	results, err := pool.Run(ctx, q)
	if err != nil {
		metrics.RecordPlan("failed")
		log.Error(ctx, "plan failed", logger.Error(err))
		return report.Report{}, err
	}

	plans := make([]planner.TeamPlan, 0, len(results))
	for _, r := range results {
		plans = append(plans, r.Plan)
	}
	metrics.RecordPlan("ok")
	log.Info(ctx, "plan finished", logger.Int("teams", len(plans)))
	return report.Build(id.String(), s.seed, plans), nil
}
