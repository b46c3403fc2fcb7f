// Package matching assigns one worker per session to a rotating duty by
// repeated randomized passes that relax the eligible unit kinds step by step.
package matching

import (
	"context"
	"fmt"
	"math/rand"
	"slices"

	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/pkg/logger"
	"github.com/okian/rota/pkg/metrics"
)

// Moratorium blocks a worker from a duty in a session.
type Moratorium interface {
	Blocked(duty model.DutyLabel, session model.Session, w model.Worker) bool
}

type noMoratorium struct{}

func (noMoratorium) Blocked(model.DutyLabel, model.Session, model.Worker) bool { return false }

// Space is one session needing the duty together with its units.
type Space struct {
	Session model.Session
	Units   []model.Unit
}

// Match is a duty assignment.
type Match struct {
	Session model.Session
	Worker  model.WorkerID
	Unit    model.Unit
	Mode    Mode
}

// Result of a Schedule run. Space holds the units with duty labels applied,
// in input order.
type Result struct {
	Duty      model.DutyLabel
	Matches   []Match
	Unmatched []model.Session
	Passes    int
	Space     []Space
}

// Scheduler runs the matching passes for one duty.
type Scheduler struct {
	roster     *model.Roster
	duty       Duty
	retries    int
	moratorium Moratorium
	log        logger.Logger
}

// New creates a Scheduler for duty.
func New(roster *model.Roster, duty Duty, opts ...Option) *Scheduler {
	s := &Scheduler{
		roster:     roster,
		duty:       duty,
		retries:    DefaultRetries,
		moratorium: noMoratorium{},
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ladder tracks the mode escalation between passes.
type ladder struct {
	modes      []Mode
	step       int
	retries    int
	budget     int
	bestEffort bool
}

func (l *ladder) mode() Mode {
	if l.bestEffort {
		return ModeBestEffort
	}
	return l.modes[l.step]
}

func (l *ladder) reset() {
	l.step = 0
	l.retries = l.budget
	l.bestEffort = false
}

// advance moves past an empty pass. It returns the outcome label and false
// once best effort itself came up empty.
func (l *ladder) advance() (string, bool) {
	if l.bestEffort {
		return "halt", false
	}
	if l.step+1 < len(l.modes) {
		l.step++
		return "escalate", true
	}
	if l.retries > 0 {
		l.retries--
		l.step = 0
		return "retry", true
	}
	l.bestEffort = true
	return "best-effort", true
}

// Schedule matches workers to the sessions in space. Sessions that stay
// uncovered after best effort are reported, not returned as an error.
func (s *Scheduler) Schedule(ctx context.Context, rng *rand.Rand, seq *model.Sequence, workers []model.WorkerID, space []Space) (Result, error) {
	if len(s.duty.Ladder) == 0 {
		return Result{}, fmt.Errorf("%w: %q", ErrEmptyLadder, s.duty.Label)
	}

	sessions := make(map[model.SessionKey]*Space, len(space))
	order := make([]model.SessionKey, 0, len(space))
	out := make([]Space, len(space))
	for i, sp := range space {
		k := sp.Session.Key()
		if _, dup := sessions[k]; dup {
			return Result{}, fmt.Errorf("%w: %s", ErrDuplicateSession, sp.Session)
		}
		out[i] = Space{Session: sp.Session, Units: slices.Clone(sp.Units)}
		sessions[k] = &out[i]
		order = append(order, k)
	}

	values := make([]model.WorkerID, 0, len(workers))
	for _, id := range workers {
		w, ok := s.roster.Lookup(id)
		if ok && (w.Cohort == model.CohortJunior || w.Cohort == model.CohortSenior) {
			values = append(values, id)
		}
	}

	res := Result{Duty: s.duty.Label}
	ledger := NewWeekLedger()
	lad := &ladder{modes: s.duty.Ladder, budget: s.retries}
	lad.reset()
	pending := order
	label := string(s.duty.Label)

passes:
	for len(pending) > 0 {
		res.Passes++
		keys := slices.Clone(pending)
		rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
		pool := slices.Clone(values)
		rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

		mode := lad.mode()
		matches, err := s.pass(rng, seq, ledger, mode, keys, pool, sessions)
		if err != nil {
			return Result{}, err
		}
		res.Matches = append(res.Matches, matches...)
		done := make(map[model.SessionKey]struct{}, len(matches))
		for _, m := range matches {
			done[m.Session.Key()] = struct{}{}
			metrics.RecordDutyMatch(label, mode.String())
		}
		pending = slices.DeleteFunc(pending, func(k model.SessionKey) bool {
			_, ok := done[k]
			return ok
		})

		switch {
		case len(matches) == 0:
			outcome, more := lad.advance()
			if outcome == "best-effort" {
				metrics.RecordBestEffortEntry(label)
			}
			metrics.RecordMatchingPass(label, outcome)
			s.log.Debug(ctx, "empty matching pass",
				logger.String("duty", label),
				logger.String("mode", mode.String()),
				logger.String("outcome", outcome),
				logger.Int("pending", len(pending)))
			if !more {
				break passes
			}
		case len(matches) < len(pool):
			metrics.RecordMatchingPass(label, "partial")
		default:
			lad.reset()
			metrics.RecordMatchingPass(label, "full")
		}
	}

	for _, k := range pending {
		res.Unmatched = append(res.Unmatched, sessions[k].Session)
	}
	slices.SortFunc(res.Matches, func(a, b Match) int { return compareSessions(a.Session, b.Session) })
	slices.SortFunc(res.Unmatched, compareSessions)
	metrics.RecordDutyUnmatched(label, len(res.Unmatched))
	if len(res.Unmatched) > 0 {
		s.log.Warn(ctx, "duty sessions left unmatched",
			logger.String("duty", label),
			logger.Int("unmatched", len(res.Unmatched)))
	}
	res.Space = out
	return res, nil
}

// pass runs one sweep over keys. Each worker of pool is used at most once.
func (s *Scheduler) pass(rng *rand.Rand, seq *model.Sequence, ledger *WeekLedger, mode Mode, keys []model.SessionKey, pool []model.WorkerID, sessions map[model.SessionKey]*Space) ([]Match, error) {
	used := make(map[model.WorkerID]struct{}, len(pool))
	var matches []Match
	for _, k := range keys {
		if len(used) == len(pool) {
			break
		}
		sp := sessions[k]
		owners := ownersOf(sp.Units)
		cands := s.candidates(rng, ledger, mode, sp.Session, sp.Units, owners, pool, used)
		if len(cands) == 0 {
			continue
		}
		w := cands[0]
		used[w] = struct{}{}
		ledger.SeenAndRecord(w, sp.Session.Date)

		idx := owners[w]
		labeled, err := sp.Units[idx].WithLabel(seq, s.duty.Label)
		if err != nil {
			return nil, err
		}
		sp.Units[idx] = labeled
		matches = append(matches, Match{Session: sp.Session, Worker: w, Unit: labeled, Mode: mode})
	}
	return matches, nil
}

// candidates filters pool down to the eligible workers with the fewest
// covered weeks, in random order.
func (s *Scheduler) candidates(rng *rand.Rand, ledger *WeekLedger, mode Mode, session model.Session, units []model.Unit, owners map[model.WorkerID]int, pool []model.WorkerID, used map[model.WorkerID]struct{}) []model.WorkerID {
	survivors := make([]model.WorkerID, 0, len(pool))
	alive := make(map[model.WorkerID]struct{}, len(pool))
	for _, id := range pool {
		if _, ok := used[id]; ok {
			continue
		}
		idx, ok := owners[id]
		if !ok || !mode.Includes(units[idx].Kind()) {
			continue
		}
		if s.moratorium.Blocked(s.duty.Label, session, s.roster.MustLookup(id)) {
			continue
		}
		if mode != ModeBestEffort && ledger.Used(id, session.Date) {
			continue
		}
		survivors = append(survivors, id)
		alive[id] = struct{}{}
	}

	if mode == ModeBestEffort {
		survivors = slices.DeleteFunc(survivors, func(id model.WorkerID) bool {
			u := units[owners[id]]
			if _, both := alive[u.Other(id)]; !both {
				return false
			}
			return model.SelectProvider(s.roster, u, session.Period, session.Priority) != id
		})
	}
	if len(survivors) == 0 {
		return nil
	}

	fewest := ledger.Weeks(survivors[0])
	for _, id := range survivors[1:] {
		fewest = min(fewest, ledger.Weeks(id))
	}
	survivors = slices.DeleteFunc(survivors, func(id model.WorkerID) bool { return ledger.Weeks(id) != fewest })
	rng.Shuffle(len(survivors), func(i, j int) { survivors[i], survivors[j] = survivors[j], survivors[i] })
	return survivors
}

// ownersOf maps each worker to the index of its unlabeled unit.
func ownersOf(units []model.Unit) map[model.WorkerID]int {
	owners := make(map[model.WorkerID]int, 2*len(units))
	for i, u := range units {
		if u.Labeled() {
			continue
		}
		for _, id := range u.Workers() {
			owners[id] = i
		}
	}
	return owners
}

func compareSessions(a, b model.Session) int {
	switch {
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	default:
		return 0
	}
}
