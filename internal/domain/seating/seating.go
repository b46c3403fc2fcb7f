// Package seating assigns work units to physical positions within a session.
package seating

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/pkg/logger"
	"github.com/okian/rota/pkg/metrics"
)

// OrphanReason explains why a unit got no position.
type OrphanReason string

const (
	ReasonPoolExhausted OrphanReason = "pool-exhausted"
	ReasonPositionTaken OrphanReason = "position-taken"
	ReasonNoProvider    OrphanReason = "no-provider"
)

// Orphan is a unit left without a position.
type Orphan struct {
	Unit     model.Unit
	Provider model.WorkerID
	Reason   OrphanReason
}

// Seating is the outcome of one allocation pass.
type Seating struct {
	Session model.Session
	Seats   map[model.PositionID]*model.Assignment
	Orphans []Orphan
}

// Assignments returns the seats ordered by position.
func (s Seating) Assignments() []*model.Assignment {
	keys := make([]model.PositionID, 0, len(s.Seats))
	for k := range s.Seats {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]*model.Assignment, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.Seats[k])
	}
	return out
}

// ProviderFunc names the worker who provides for a unit. false skips the unit
// for this pass.
type ProviderFunc func(model.Unit) (model.WorkerID, bool)

// Request is the input of one allocation pass.
type Request struct {
	Session  model.Session
	Units    []model.Unit
	Pool     *Pool
	Provider ProviderFunc
}

// Order sorts units for seating: duty-labeled first, then plus-extra units,
// then everything else. The sort is stable.
func Order(units []model.Unit) []model.Unit {
	rank := func(u model.Unit) int {
		switch {
		case u.Labeled():
			return 0
		case u.Kind().IsPlusExtra():
			return 1
		default:
			return 2
		}
	}
	out := slices.Clone(units)
	slices.SortStableFunc(out, func(a, b model.Unit) int { return cmp.Compare(rank(a), rank(b)) })
	return out
}

// Allocator dispatches allocation passes to named strategies.
type Allocator struct {
	roster     *model.Roster
	log        logger.Logger
	strategies map[StrategyName]Strategy
}

// New creates an Allocator with the built-in strategies registered.
func New(roster *model.Roster, opts ...Option) *Allocator {
	a := &Allocator{
		roster: roster,
		log:    logger.Nop(),
	}
	a.strategies = map[StrategyName]Strategy{
		StrategyDefault:         defaultStrategy{},
		StrategyFridayAfternoon: fridayAfternoonStrategy{},
		StrategyPerio:           perioStrategy{},
		StrategyOrphanRecovery:  orphanRecoveryStrategy{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate runs req through the named strategy.
func (a *Allocator) Allocate(ctx context.Context, name StrategyName, req Request) (Seating, error) {
	s, ok := a.strategies[name]
	if !ok {
		return Seating{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	out, err := s.Allocate(ctx, a, req)
	if err != nil {
		return Seating{}, err
	}
	metrics.RecordSeats(len(out.Seats))
	for _, o := range out.Orphans {
		metrics.RecordOrphan(string(o.Reason))
	}
	return out, nil
}

// place seats units in order, duty-labeled units first. When strict is set a
// drawn position that is already taken aborts the pass instead of orphaning
// the unit.
func (a *Allocator) place(ctx context.Context, req Request, strict bool) (Seating, error) {
	out := Seating{
		Session: req.Session,
		Seats:   make(map[model.PositionID]*model.Assignment, len(req.Units)),
	}

	labeled := make([]model.Unit, 0, len(req.Units))
	rest := make([]model.Unit, 0, len(req.Units))
	for _, u := range req.Units {
		if u.Labeled() {
			labeled = append(labeled, u)
		} else {
			rest = append(rest, u)
		}
	}

	for _, u := range append(labeled, rest...) {
		provider, ok := req.Provider(u)
		if !ok || !provider.Present() {
			out.Orphans = append(out.Orphans, Orphan{Unit: u, Reason: ReasonNoProvider})
			continue
		}

		var pos model.PositionID
		if u.Labeled() {
			pos, ok = req.Pool.Reserved(u.Label())
			if !ok {
				return Seating{}, fmt.Errorf("%w: %q in %s", ErrNoReservedPosition, u.Label(), req.Session)
			}
			if _, taken := out.Seats[pos]; taken {
				return Seating{}, fmt.Errorf("%w: %s (%q) in %s", ErrReservedCollision, pos, u.Label(), req.Session)
			}
		} else {
			w, found := a.roster.Lookup(provider)
			if !found {
				return Seating{}, fmt.Errorf("%w: provider %s not in roster", model.ErrInvalidValue, provider)
			}
			pos, ok = req.Pool.Next(w.PoolKey())
			if !ok {
				out.Orphans = append(out.Orphans, Orphan{Unit: u, Provider: provider, Reason: ReasonPoolExhausted})
				continue
			}
			if _, taken := out.Seats[pos]; taken {
				if strict {
					return Seating{}, fmt.Errorf("%w: %s in %s", ErrPositionCollision, pos, req.Session)
				}
				a.log.Debug(ctx, "position already taken",
					logger.String("position", string(pos)),
					logger.String("session", req.Session.String()))
				out.Orphans = append(out.Orphans, Orphan{Unit: u, Provider: provider, Reason: ReasonPositionTaken})
				continue
			}
		}

		asg, err := model.NewAssignment(req.Session, pos, u, provider)
		if err != nil {
			return Seating{}, err
		}
		out.Seats[pos] = asg
	}
	return out, nil
}
