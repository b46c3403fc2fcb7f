package planner

import (
	"slices"
	"time"

	"github.com/okian/rota/internal/domain/model"
)

// RotationSlot is a weekday half-day of the emergency rotation.
type RotationSlot struct {
	Weekday time.Weekday
	Period  model.Period
}

// WeekTable lists the teams on emergency duty per slot for one week.
type WeekTable map[RotationSlot][]model.TeamID

// Rotation cycles through its week tables, one per calendar week counted from
// the term start.
type Rotation []WeekTable

// OnDuty reports whether the session's team covers the emergency duty.
func (r Rotation) OnDuty(start time.Time, s model.Session) bool {
	if len(r) == 0 {
		return false
	}
	weeks := int(s.Week().Sub(model.WeekOf(start)).Hours() / (24 * 7))
	table := r[((weeks%len(r))+len(r))%len(r)]
	return slices.Contains(table[RotationSlot{Weekday: s.Date.Weekday(), Period: s.Period}], s.Team)
}
