// Package fairness evens out per-worker assignment counts after seating by
// handing shared assignments from over-served workers to their under-served
// primary links.
package fairness

import (
	"context"
	"fmt"
	"math/rand"
	"slices"

	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/pkg/logger"
	"github.com/okian/rota/pkg/metrics"
)

// Transfer records assignments moved from one worker to its primary link.
type Transfer struct {
	To      model.WorkerID
	From    model.WorkerID
	Need    int
	Surplus int
	Moved   []*model.Assignment
}

// Report is the outcome of one Rebalance call. Stats are the cohort summaries
// computed before any toggle.
type Report struct {
	Team      model.TeamID
	Transfers []Transfer
	Stats     map[model.Cohort]Stats
}

// Toggles is the number of assignments moved.
func (r Report) Toggles() int {
	n := 0
	for _, t := range r.Transfers {
		n += len(t.Moved)
	}
	return n
}

// Rebalancer toggles assignments between linked workers.
type Rebalancer struct {
	log logger.Logger
}

// New creates a Rebalancer.
func New(opts ...Option) *Rebalancer {
	r := &Rebalancer{log: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type swap struct {
	to, from      model.WorkerID
	need, surplus int
}

// Rebalance evens one team's assignments in place. Workers are counted by the
// assignments they currently provide; extra-cohort workers are never moved.
func (r *Rebalancer) Rebalance(ctx context.Context, rng *rand.Rand, roster *model.Roster, assignments []*model.Assignment) (Report, error) {
	rep := Report{Stats: make(map[model.Cohort]Stats)}
	if len(assignments) == 0 {
		return rep, nil
	}
	rep.Team = assignments[0].Session().Team

	byWorker := make(map[model.WorkerID][]*model.Assignment)
	for _, a := range assignments {
		if a.Session().Team != rep.Team {
			return Report{}, fmt.Errorf("%w: %s and %s", ErrMixedTeams, rep.Team, a.Session().Team)
		}
		byWorker[a.Provider()] = append(byWorker[a.Provider()], a)
	}

	ids := make([]model.WorkerID, 0, len(byWorker))
	for id := range byWorker {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		w, ok := roster.Lookup(id)
		if !ok || !counted(w.Cohort) {
			continue
		}
		st := rep.Stats[w.Cohort]
		st.Add(len(byWorker[id]))
		rep.Stats[w.Cohort] = st
	}

	var swaps []swap
	for _, id := range ids {
		w, ok := roster.Lookup(id)
		if !ok || !counted(w.Cohort) {
			continue
		}
		link, ok := roster.Lookup(w.PrimaryLink)
		if !ok || !counted(link.Cohort) {
			continue
		}
		own, linkStats := rep.Stats[w.Cohort], rep.Stats[link.Cohort]
		count, linkCount := len(byWorker[id]), len(byWorker[link.ID])
		if own.Standing(count) != StandingBelow || linkStats.Standing(linkCount) != StandingAbove {
			continue
		}
		swaps = append(swaps, swap{
			to:      id,
			from:    link.ID,
			need:    own.Mean() - count,
			surplus: linkCount - linkStats.Mean(),
		})
	}

	for _, s := range swaps {
		if s.surplus <= 0 {
			r.log.Debug(ctx, "no surplus to transfer",
				logger.String("worker", string(s.to)),
				logger.String("link", string(s.from)),
				logger.Int("surplus", s.surplus))
			continue
		}
		pool := shared(byWorker[s.from], s.to)
		rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		take := min(s.need, s.surplus, len(pool))

		t := Transfer{To: s.to, From: s.from, Need: s.need, Surplus: s.surplus}
		for _, a := range pool[:max(take, 0)] {
			if err := a.Toggle(); err != nil {
				return Report{}, fmt.Errorf("toggle %s at %s: %w", a.Session(), a.Position(), err)
			}
			t.Moved = append(t.Moved, a)
		}
		byWorker[s.from] = slices.DeleteFunc(byWorker[s.from], func(a *model.Assignment) bool { return a.Provider() != s.from })
		byWorker[s.to] = append(byWorker[s.to], t.Moved...)
		rep.Transfers = append(rep.Transfers, t)
	}

	metrics.RecordToggles(rep.Toggles())
	r.log.Info(ctx, "rebalanced assignments",
		logger.String("team", string(rep.Team)),
		logger.Int("transfers", len(rep.Transfers)),
		logger.Int("toggles", rep.Toggles()))
	return rep, nil
}

// shared returns the link's assignments on a unit with w that may still move.
func shared(from []*model.Assignment, w model.WorkerID) []*model.Assignment {
	var out []*model.Assignment
	for _, a := range from {
		u := a.Unit()
		if u.Has(w) && !u.Labeled() && !a.Toggled() {
			out = append(out, a)
		}
	}
	return out
}

func counted(c model.Cohort) bool {
	return c == model.CohortJunior || c == model.CohortSenior
}
