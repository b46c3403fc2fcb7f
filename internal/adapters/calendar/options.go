package calendar

import (
	"time"

	"github.com/okian/rota/internal/domain/model"
)

// Option applies a configuration option to the Calendar.
type Option func(*Calendar)

// WithWeek pins the priority of the week containing date.
func WithWeek(date time.Time, p model.Priority) Option {
	return func(c *Calendar) {
		c.weeks[model.WeekOf(date)] = p
	}
}

// WithDay overrides the open mode and kind of date.
func WithDay(date time.Time, d Day) Option {
	return func(c *Calendar) {
		c.days[model.Day(date)] = d
	}
}
