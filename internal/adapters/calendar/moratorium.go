package calendar

import (
	"slices"
	"time"

	"github.com/okian/rota/internal/domain/model"
)

// Window keeps one cohort off a duty over a date range. A zero From or To
// leaves that side open. Empty Programs matches every program.
type Window struct {
	Duty     model.DutyLabel
	Cohort   model.Cohort
	Programs []model.Program
	From     time.Time
	To       time.Time

	// ExemptLectureAM lifts the block on the mornings of lecture days.
	ExemptLectureAM bool
	// ExemptFridayPM lifts the block on Friday afternoons.
	ExemptFridayPM bool
}

// Moratorium blocks workers from duties according to its windows.
type Moratorium struct {
	cal     *Calendar
	windows []Window
}

// NewMoratorium creates a Moratorium. cal decides lecture days and may be
// nil when no window uses ExemptLectureAM.
func NewMoratorium(cal *Calendar, windows []Window) *Moratorium {
	return &Moratorium{cal: cal, windows: slices.Clone(windows)}
}

// Blocked reports whether w may not cover duty in s.
func (m *Moratorium) Blocked(duty model.DutyLabel, s model.Session, w model.Worker) bool {
	for _, win := range m.windows {
		if m.applies(win, duty, s, w) {
			return true
		}
	}
	return false
}

func (m *Moratorium) applies(win Window, duty model.DutyLabel, s model.Session, w model.Worker) bool {
	if win.Duty != duty || win.Cohort != w.Cohort {
		return false
	}
	if len(win.Programs) > 0 && !slices.Contains(win.Programs, w.Program) {
		return false
	}
	d := model.Day(s.Date)
	if !win.From.IsZero() && d.Before(model.Day(win.From)) {
		return false
	}
	if !win.To.IsZero() && d.After(model.Day(win.To)) {
		return false
	}
	if win.ExemptLectureAM && s.Period == model.PeriodAM && m.cal != nil && m.cal.Special(d) == model.SpecialLecture {
		return false
	}
	if win.ExemptFridayPM && s.Period == model.PeriodPM && d.Weekday() == time.Friday {
		return false
	}
	return true
}
