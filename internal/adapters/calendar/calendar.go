// Package calendar answers per-date questions about a term: which half-days
// are open, the week's priority, special days, absences and duty moratoria.
package calendar

import (
	"time"

	"github.com/okian/rota/internal/domain/model"
)

// Day overrides the defaults for one date.
type Day struct {
	Open    model.OpenMode
	Special model.Special
}

// Calendar is an in-memory academic calendar. It is read-only once built and
// safe for concurrent use.
type Calendar struct {
	start time.Time
	first model.Priority
	weeks map[time.Time]model.Priority
	days  map[time.Time]Day
}

// New creates a Calendar whose weeks alternate priorities starting with
// first in the week of start.
func New(start time.Time, first model.Priority, opts ...Option) *Calendar {
	c := &Calendar{
		start: model.WeekOf(start),
		first: first,
		weeks: make(map[time.Time]model.Priority),
		days:  make(map[time.Time]Day),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpenMode reports which periods of date are open. Days default to both.
func (c *Calendar) OpenMode(date time.Time) model.OpenMode {
	if d, ok := c.days[model.Day(date)]; ok {
		return d.Open
	}
	return model.OpenBoth
}

// Special reports the kind of day.
func (c *Calendar) Special(date time.Time) model.Special {
	return c.days[model.Day(date)].Special
}

// IsSpecialDate reports whether date is a lecture or break day.
func (c *Calendar) IsSpecialDate(date time.Time) bool {
	return c.Special(date) != model.SpecialNone
}

// Priority is the priority of date's calendar week.
func (c *Calendar) Priority(date time.Time) model.Priority {
	week := model.WeekOf(date)
	if p, ok := c.weeks[week]; ok {
		return p
	}
	n := int(week.Sub(c.start).Hours()/24) / 7
	if n%2 == 0 {
		return c.first
	}
	if c.first == model.PriorityUpper {
		return model.PriorityLower
	}
	return model.PriorityUpper
}
