package capacity

import (
	"time"

	"github.com/okian/rota/internal/domain/model"
)

// Conditions is the calendar context a scenario is chosen from.
type Conditions struct {
	Program  model.Program
	Date     time.Time
	Period   model.Period
	Special  model.Special
	Occupied int
	Capacity int
}

// Select picks the scenario for a session. Domestic teams run reduced on
// lecture mornings and Friday afternoons; international teams maximise on
// lecture days.
func Select(c Conditions) Scenario {
	if c.Special == model.SpecialBreak {
		return ScenarioClosed
	}
	switch c.Program {
	case model.ProgramInternational:
		if c.Special == model.SpecialLecture {
			return ScenarioMaximize
		}
	default:
		lectureAM := c.Special == model.SpecialLecture && c.Period == model.PeriodAM
		fridayPM := c.Date.Weekday() == time.Friday && c.Period == model.PeriodPM
		if lectureAM || fridayPM {
			return ScenarioReduced
		}
	}
	if c.Occupied < c.Capacity {
		return ScenarioBelow
	}
	return ScenarioSufficient
}
