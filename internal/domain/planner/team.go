package planner

import (
	"fmt"
	"time"

	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/internal/domain/seating"
)

// Term is the inclusive date range sessions are planned for.
type Term struct {
	Start time.Time
	End   time.Time
}

// Validate checks the term bounds.
func (t Term) Validate() error {
	if t.Start.IsZero() || t.End.IsZero() || model.Day(t.End).Before(model.Day(t.Start)) {
		return fmt.Errorf("%w: %s..%s", ErrInvalidTerm, t.Start.Format(model.DateLayout), t.End.Format(model.DateLayout))
	}
	return nil
}

// Positions are a team's position tables.
type Positions struct {
	Shared   []model.PositionID
	Keyed    map[string][]model.PositionID
	FridayPM []model.PositionID
}

// Team is the per-team planning setup.
type Team struct {
	ID             model.TeamID
	Program        model.Program
	Capacity       int
	Strategy       seating.StrategyName
	OrphanRecovery bool
	Positions      Positions
	Reserved       map[model.DutyLabel]model.PositionID
}

// Perio reports whether the team seats every worker alone.
func (t Team) Perio() bool { return t.Strategy == seating.StrategyPerio }

// pool builds the session's position arena and the strategy that drains it.
func (t Team) pool(s model.Session) (*seating.Pool, seating.StrategyName) {
	if s.Date.Weekday() == time.Friday && s.Period == model.PeriodPM && len(t.Positions.FridayPM) > 0 {
		return seating.NewPool(t.Positions.FridayPM, nil, t.Reserved), seating.StrategyFridayAfternoon
	}
	name := t.Strategy
	if name == "" {
		name = seating.StrategyDefault
	}
	return seating.NewPool(t.Positions.Shared, t.Positions.Keyed, t.Reserved), name
}
