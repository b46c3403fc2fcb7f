// Package planner runs the per-team pipeline: pairing, capacity resizing,
// duty matching, seating and fairness rebalancing over a term.
package planner

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/okian/rota/internal/domain/capacity"
	"github.com/okian/rota/internal/domain/fairness"
	"github.com/okian/rota/internal/domain/matching"
	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/internal/domain/pairing"
	"github.com/okian/rota/internal/domain/seating"
	"github.com/okian/rota/pkg/logger"
	"github.com/okian/rota/pkg/metrics"
	"github.com/zeebo/xxh3"
)

// Calendar answers per-date questions about the term.
type Calendar interface {
	OpenMode(date time.Time) model.OpenMode
	Priority(date time.Time) model.Priority
	Special(date time.Time) model.Special
}

// Availability reports whether a worker can attend a session.
type Availability interface {
	Available(w model.WorkerID, s model.Session) bool
}

type everyone struct{}

func (everyone) Available(model.WorkerID, model.Session) bool { return true }

// DutyRoster is the cross-team record of who covers each duty session.
// Writes for one team happen between Lock and the returned unlock.
type DutyRoster interface {
	Lock(team model.TeamID) (unlock func())
	Put(duty model.DutyLabel, s model.Session, w model.WorkerID)
	Get(duty model.DutyLabel, s model.Session) (model.WorkerID, bool)
}

// SessionPlan is the outcome for one session.
type SessionPlan struct {
	Session  model.Session
	Scenario capacity.Scenario
	Splits   int
	Units    []model.Unit
	Awaiting []model.Unit
	Strategy seating.StrategyName
	Seating  seating.Seating
}

// TeamPlan is the outcome for one team over the term.
type TeamPlan struct {
	Team     model.TeamID
	Sessions []SessionPlan
	Duties   []matching.Result
	Fairness fairness.Report
}

// Planner plans teams. It is safe to plan different teams concurrently; the
// duty roster is the only shared state.
type Planner struct {
	roster     *model.Roster
	cal        Calendar
	duties     DutyRoster
	avail      Availability
	moratorium matching.Moratorium
	rotation   Rotation
	seed       int64
	capacity   int
	ratio      float64
	retries    int
	log        logger.Logger

	pairs     *pairing.Constructor
	resizer   *capacity.Engine
	seats     *seating.Allocator
	rebalance *fairness.Rebalancer
}

// New creates a Planner.
func New(roster *model.Roster, cal Calendar, duties DutyRoster, opts ...Option) *Planner {
	p := &Planner{
		roster:   roster,
		cal:      cal,
		duties:   duties,
		avail:    everyone{},
		capacity: DefaultCapacity,
		ratio:    capacity.DefaultRatio,
		retries:  matching.DefaultRetries,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.pairs = pairing.New(roster, pairing.WithLogger(p.log.Named("pairing")))
	p.resizer = capacity.New(capacity.WithRatio(p.ratio), capacity.WithLogger(p.log.Named("capacity")))
	p.seats = seating.New(roster, seating.WithLogger(p.log.Named("seating")))
	p.rebalance = fairness.New(fairness.WithLogger(p.log.Named("fairness")))
	return p
}

// Rand returns the team's random stream for the planner seed.
func (p *Planner) Rand(team model.TeamID) *rand.Rand {
	return rand.New(rand.NewSource(int64(xxh3.HashStringSeed(string(team), uint64(p.seed))))) //nolint:gosec // reproducible plans
}

// PlanTeam runs the whole pipeline for team over term.
func (p *Planner) PlanTeam(ctx context.Context, team Team, term Term) (TeamPlan, error) {
	start := time.Now()
	if err := term.Validate(); err != nil {
		return TeamPlan{}, err
	}
	if len(p.roster.Team(team.ID)) == 0 {
		return TeamPlan{}, fmt.Errorf("%w: %s", ErrUnknownTeam, team.ID)
	}

	rng := p.Rand(team.ID)
	seq := &model.Sequence{}
	plan := TeamPlan{Team: team.ID}

	for _, s := range p.sessions(team, term) {
		sp, err := p.session(ctx, rng, seq, team, s)
		if err != nil {
			return TeamPlan{}, fmt.Errorf("plan %s: %w", s, err)
		}
		plan.Sessions = append(plan.Sessions, sp)
	}

	if !team.Perio() {
		for _, duty := range []matching.Duty{matching.Emergency, matching.Overflow} {
			if _, ok := team.Reserved[duty.Label]; !ok {
				continue
			}
			res, err := p.duty(ctx, rng, seq, team, term, duty, plan.Sessions)
			if err != nil {
				return TeamPlan{}, err
			}
			plan.Duties = append(plan.Duties, res)
		}
	}

	var all []*model.Assignment
	for i := range plan.Sessions {
		sp := &plan.Sessions[i]
		seated, err := p.seat(ctx, team, sp)
		if err != nil {
			return TeamPlan{}, fmt.Errorf("seat %s: %w", sp.Session, err)
		}
		sp.Seating = seated
		all = append(all, seated.Assignments()...)
	}

	if !team.Perio() {
		rep, err := p.rebalance.Rebalance(ctx, rng, p.roster, all)
		if err != nil {
			return TeamPlan{}, fmt.Errorf("rebalance %s: %w", team.ID, err)
		}
		plan.Fairness = rep
	}

	metrics.RecordTeamPlanLatency(float64(time.Since(start).Milliseconds()))
	p.log.Info(ctx, "team planned",
		logger.String("team", string(team.ID)),
		logger.Int("sessions", len(plan.Sessions)),
		logger.Int("toggles", plan.Fairness.Toggles()))
	return plan, nil
}

// sessions enumerates the open weekday half-days of the term.
func (p *Planner) sessions(team Team, term Term) []model.Session {
	var out []model.Session
	for d := model.Day(term.Start); !d.After(model.Day(term.End)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		for _, period := range p.cal.OpenMode(d).Periods() {
			out = append(out, model.NewSession(d, period, team.ID, p.cal.Priority(d)))
		}
	}
	return out
}

// available lists the team's workers present in s. Extra-cohort workers are
// kept only while a worker carrying them is present too.
func (p *Planner) available(team Team, s model.Session) []model.WorkerID {
	members := p.roster.Team(team.ID)
	present := make(map[model.WorkerID]bool, len(members))
	for _, w := range members {
		present[w.ID] = p.avail.Available(w.ID, s)
	}
	carried := make(map[model.WorkerID]bool)
	for _, w := range members {
		if present[w.ID] && w.Cohort != model.CohortExtra && w.SecondaryLink.Present() {
			carried[w.SecondaryLink] = true
		}
	}

	out := make([]model.WorkerID, 0, len(members))
	for _, w := range members {
		if !present[w.ID] {
			continue
		}
		if w.Cohort == model.CohortExtra && !carried[w.ID] {
			continue
		}
		out = append(out, w.ID)
	}
	return out
}

// session builds and resizes the units of one session.
func (p *Planner) session(ctx context.Context, rng *rand.Rand, seq *model.Sequence, team Team, s model.Session) (SessionPlan, error) {
	ids := p.available(team, s)

	var units []model.Unit
	if team.Perio() {
		for _, id := range ids {
			w := p.roster.MustLookup(id)
			if w.Cohort == model.CohortExtra || w.Priority != s.Priority {
				continue
			}
			a, b := id, model.NoWorker
			if w.Priority == model.PriorityLower {
				a, b = b, a
			}
			u, err := model.NewUnit(seq, a, b, model.KindOrphan)
			if err != nil {
				return SessionPlan{}, err
			}
			units = append(units, u)
		}
	} else {
		built, err := p.pairs.Build(ctx, seq, s, ids)
		if err != nil {
			return SessionPlan{}, err
		}
		units = built
	}

	sp := SessionPlan{Session: s}
	if !team.Perio() {
		kept := units[:0:0]
		for _, u := range units {
			if u.Kind() == model.KindOrphan && !model.SelectProvider(p.roster, u, s.Period, s.Priority).Present() {
				sp.Awaiting = append(sp.Awaiting, u)
				continue
			}
			kept = append(kept, u)
		}
		units = kept
		if len(sp.Awaiting) > 0 {
			metrics.RecordAwaiting(len(sp.Awaiting))
		}
	}

	limit := team.Capacity
	if limit <= 0 {
		limit = p.capacity
	}
	scenario := capacity.Select(capacity.Conditions{
		Program:  team.Program,
		Date:     s.Date,
		Period:   s.Period,
		Special:  p.cal.Special(s.Date),
		Occupied: len(units),
		Capacity: limit,
	})
	res, err := p.resizer.Resize(ctx, rng, seq, units, limit, scenario)
	if err != nil {
		return SessionPlan{}, err
	}
	sp.Scenario = res.Scenario
	sp.Splits = res.Splits
	sp.Units = res.Units
	return sp, nil
}

// duty matches one duty over the team's sessions, writes the labeled units
// back into sessions and records the matches in the duty roster. The
// emergency duty only covers the sessions the rotation gives the team.
func (p *Planner) duty(ctx context.Context, rng *rand.Rand, seq *model.Sequence, team Team, term Term, duty matching.Duty, sessions []SessionPlan) (matching.Result, error) {
	var space []matching.Space
	var index []int
	for i, sp := range sessions {
		if duty.Label == matching.Emergency.Label && !p.rotation.OnDuty(term.Start, sp.Session) {
			continue
		}
		space = append(space, matching.Space{Session: sp.Session, Units: sp.Units})
		index = append(index, i)
	}

	var workers []model.WorkerID
	for _, w := range p.roster.Team(team.ID) {
		workers = append(workers, w.ID)
	}

	s := matching.New(p.roster, duty,
		matching.WithRetries(p.retries),
		matching.WithMoratorium(p.moratorium),
		matching.WithLogger(p.log.Named("matching")))
	res, err := s.Schedule(ctx, rng, seq, workers, space)
	if err != nil {
		return matching.Result{}, fmt.Errorf("match %s for %s: %w", duty.Label, team.ID, err)
	}
	for k, i := range index {
		sessions[i].Units = res.Space[k].Units
	}

	unlock := p.duties.Lock(team.ID)
	for _, m := range res.Matches {
		p.duties.Put(duty.Label, m.Session, m.Worker)
	}
	unlock()
	return res, nil
}

// seat allocates positions for one session, with an orphan recovery pass
// when the team asks for it.
func (p *Planner) seat(ctx context.Context, team Team, sp *SessionPlan) (seating.Seating, error) {
	s := sp.Session
	units := seating.Order(sp.Units)

	resolved := make(map[model.UnitID]model.WorkerID)
	for _, u := range units {
		if !u.Labeled() {
			continue
		}
		w, ok := p.duties.Get(u.Label(), s)
		if !ok || !u.Has(w) {
			return seating.Seating{}, fmt.Errorf("%w: %q in %s", ErrMissingDutyProvider, u.Label(), s)
		}
		resolved[u.ID()] = w
	}

	provide := func(u model.Unit) (model.WorkerID, bool) {
		if u.Labeled() {
			return resolved[u.ID()], true
		}
		if team.Perio() {
			return u.Solo()
		}
		w := model.SelectProvider(p.roster, u, s.Period, s.Priority)
		return w, w.Present()
	}

	pool, name := team.pool(s)
	sp.Strategy = name
	out, err := p.seats.Allocate(ctx, name, seating.Request{Session: s, Units: units, Pool: pool, Provider: provide})
	if err != nil {
		return seating.Seating{}, err
	}
	if !team.OrphanRecovery || len(out.Orphans) == 0 {
		return out, nil
	}

	var retry []model.Unit
	var kept []seating.Orphan
	by := make(map[model.UnitID]model.WorkerID)
	for _, o := range out.Orphans {
		if o.Reason == seating.ReasonNoProvider {
			kept = append(kept, o)
			continue
		}
		retry = append(retry, o.Unit)
		by[o.Unit.ID()] = o.Provider
	}
	if len(retry) == 0 {
		return out, nil
	}
	rec, err := p.seats.Allocate(ctx, seating.StrategyOrphanRecovery, seating.Request{
		Session: s,
		Units:   retry,
		Pool:    seating.Unclaimed(pool, out.Seats),
		Provider: func(u model.Unit) (model.WorkerID, bool) {
			w, ok := by[u.ID()]
			return w, ok
		},
	})
	if err != nil {
		return seating.Seating{}, err
	}
	for pos, a := range rec.Seats {
		out.Seats[pos] = a
	}
	out.Orphans = append(kept, rec.Orphans...)
	p.log.Debug(ctx, "orphans recovered",
		logger.String("session", s.String()),
		logger.Int("recovered", len(rec.Seats)))
	return out, nil
}
