// Package capacity resizes a session's work units to fit its position
// capacity by splitting pairs, never by merging or dropping them.
package capacity

import (
	"context"
	"fmt"
	"math/rand"
	"slices"

	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/pkg/logger"
	"github.com/okian/rota/pkg/metrics"
)

// DefaultRatio is the minimum share of assisted positions (3:8).
const DefaultRatio = 0.375

// Scenario is the resizing policy applied to a session.
type Scenario int

const (
	ScenarioClosed Scenario = iota
	ScenarioReduced
	ScenarioBelow
	ScenarioMaximize
	ScenarioSufficient
)

func (s Scenario) String() string {
	switch s {
	case ScenarioClosed:
		return "closed"
	case ScenarioReduced:
		return "reduced"
	case ScenarioBelow:
		return "below"
	case ScenarioMaximize:
		return "maximize"
	case ScenarioSufficient:
		return "sufficient"
	default:
		return fmt.Sprintf("scenario-%d", int(s))
	}
}

// Result is the resized unit list.
type Result struct {
	Units    []model.Unit
	Splits   int
	Scenario Scenario
}

// Occupied is the number of positions the units take.
func (r Result) Occupied() int { return len(r.Units) }

// Engine applies capacity scenarios.
type Engine struct {
	ratio   float64
	halving []model.Kind
	log     logger.Logger
}

// New creates an Engine. By default the halving pool is the plus-extra kinds.
func New(opts ...Option) *Engine {
	e := &Engine{
		ratio:   DefaultRatio,
		halving: []model.Kind{model.KindSeniorPlusExtra, model.KindJuniorPlusExtra},
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resize applies scenario to units. Only Split is used, so a list that is
// already over capacity stays over capacity.
func (e *Engine) Resize(ctx context.Context, rng *rand.Rand, seq *model.Sequence, units []model.Unit, capacity int, scenario Scenario) (Result, error) {
	if capacity < 0 {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	st := &state{e: e, rng: rng, seq: seq, units: slices.Clone(units), capacity: capacity}

	var err error
	switch scenario {
	case ScenarioClosed, ScenarioReduced, ScenarioSufficient:
	case ScenarioBelow:
		err = st.fill(ctx)
	case ScenarioMaximize:
		err = st.splitAll()
	default:
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownScenario, int(scenario))
	}
	if err != nil {
		return Result{}, err
	}

	metrics.RecordScenario(scenario.String())
	metrics.RecordSplits(scenario.String(), st.splits)
	return Result{Units: st.units, Splits: st.splits, Scenario: scenario}, nil
}

// CanSplit reports whether splitting n more units keeps the assisted share of
// units at or above ratio.
func CanSplit(units []model.Unit, n int, ratio float64) bool {
	occupied := len(units)
	if occupied+n == 0 {
		return false
	}
	assisted := occupied
	for _, u := range units {
		if u.Kind().IsSolo() {
			assisted--
		}
	}
	return float64(assisted-n)/float64(occupied+n) >= ratio
}

type state struct {
	e        *Engine
	rng      *rand.Rand
	seq      *model.Sequence
	units    []model.Unit
	capacity int
	splits   int
}

func (s *state) canSplit(n int) bool { return CanSplit(s.units, n, s.e.ratio) }

func (s *state) pool(kinds []model.Kind) []int {
	var idx []int
	for i, u := range s.units {
		if u.Splittable() && slices.Contains(kinds, u.Kind()) {
			idx = append(idx, i)
		}
	}
	return idx
}

// fill brings an under-capacity session up by halving the asymmetric pool,
// then splitting linked pairs while the ratio guard holds.
func (s *state) fill(ctx context.Context) error {
	for len(s.units) < s.capacity {
		pool := s.pool(s.e.halving)
		if len(pool) == 0 || !s.canSplit(1) {
			break
		}
		n := min((len(pool)+1)/2, s.capacity-len(s.units))
		for n > 0 && !s.canSplit(n) {
			n--
		}
		if n == 0 {
			break
		}
		if err := s.split(pool, n); err != nil {
			return err
		}
	}

	need := s.capacity - len(s.units)
	if need <= 0 {
		return nil
	}
	ask := need
	for ask > 0 && !s.canSplit(ask) {
		ask--
	}
	if ask == 0 {
		s.e.log.Debug(ctx, "ratio guard refuses linked pair split", logger.Int("need", need))
		return nil
	}
	links := s.pool([]model.Kind{model.KindLinkedPair})
	if ask > len(links) {
		ask = len(links)
	}
	if ask < need {
		s.e.log.Debug(ctx, "capacity not reached", logger.Int("need", need), logger.Int("split", ask))
	}
	return s.split(links, ask)
}

func (s *state) splitAll() error {
	var all []int
	for i, u := range s.units {
		if u.Splittable() {
			all = append(all, i)
		}
	}
	return s.split(all, len(all))
}

// split splits n units sampled uniformly from the candidate indexes. Each
// split unit is replaced in place by its two halves.
func (s *state) split(candidates []int, n int) error {
	if n <= 0 {
		return nil
	}
	candidates = slices.Clone(candidates)
	s.rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	chosen := make(map[int]struct{}, n)
	for _, i := range candidates[:n] {
		chosen[i] = struct{}{}
	}

	out := make([]model.Unit, 0, len(s.units)+n)
	for i, u := range s.units {
		if _, ok := chosen[i]; !ok {
			out = append(out, u)
			continue
		}
		left, right, err := u.Split(s.seq)
		if err != nil {
			return err
		}
		out = append(out, left, right)
	}
	s.units = out
	s.splits += n
	return nil
}
