package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the civil date format used across inputs and outputs.
const DateLayout = "2006-01-02"

// Period is a half-day.
type Period int

const (
	PeriodAM Period = iota
	PeriodPM
)

func (p Period) String() string {
	if p == PeriodPM {
		return "PM"
	}
	return "AM"
}

// ParsePeriod accepts "AM" and "PM" (case-insensitive).
func ParsePeriod(s string) (Period, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AM":
		return PeriodAM, nil
	case "PM":
		return PeriodPM, nil
	default:
		return PeriodAM, fmt.Errorf("%w: period %q", ErrInvalidValue, s)
	}
}

// Day truncates t to a UTC calendar day so dates compare with ==.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD civil date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidValue, s)
	}
	return t, nil
}

// WeekOf returns the Monday on or before t.
func WeekOf(t time.Time) time.Time {
	d := Day(t)
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return d.AddDate(0, 0, -offset)
}

// Session is a (date, period, team) scheduling key. Priority is the calendar
// flag of the session's week.
type Session struct {
	Date     time.Time
	Period   Period
	Team     TeamID
	Priority Priority
}

// NewSession normalises the date to a UTC day.
func NewSession(date time.Time, period Period, team TeamID, priority Priority) Session {
	return Session{Date: Day(date), Period: period, Team: team, Priority: priority}
}

// Week returns the Monday floor of the session date.
func (s Session) Week() time.Time { return WeekOf(s.Date) }

// Key is the identity of the session without its priority flag.
func (s Session) Key() SessionKey {
	return SessionKey{Date: s.Date, Period: s.Period, Team: s.Team}
}

// Before orders sessions by date, then period, then team.
func (s Session) Before(o Session) bool {
	if !s.Date.Equal(o.Date) {
		return s.Date.Before(o.Date)
	}
	if s.Period != o.Period {
		return s.Period < o.Period
	}
	return s.Team < o.Team
}

func (s Session) String() string {
	return fmt.Sprintf("%s %s %s", s.Date.Format(DateLayout), s.Period, s.Team)
}

// SessionKey is a comparable session identity for map keys.
type SessionKey struct {
	Date   time.Time
	Period Period
	Team   TeamID
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Date.Format(DateLayout), k.Period, k.Team)
}

// Slot is a session identity without the team, used by cross-team maps.
type Slot struct {
	Date   time.Time
	Period Period
}

// SlotOf returns the team-less slot of a session.
func SlotOf(s Session) Slot { return Slot{Date: s.Date, Period: s.Period} }

func (s Slot) String() string {
	return s.Date.Format(DateLayout) + "/" + s.Period.String()
}
