package matching

import (
	"time"

	"github.com/okian/rota/internal/domain/model"
)

// WeekLedger records the calendar weeks in which each worker already covered
// the duty.
type WeekLedger struct {
	weeks map[model.WorkerID]map[time.Time]struct{}
}

// NewWeekLedger returns an empty ledger.
func NewWeekLedger() *WeekLedger {
	return &WeekLedger{weeks: make(map[model.WorkerID]map[time.Time]struct{})}
}

// SeenAndRecord reports whether w was already recorded for the week of date,
// and records it if not.
func (l *WeekLedger) SeenAndRecord(w model.WorkerID, date time.Time) bool {
	week := model.WeekOf(date)
	set, ok := l.weeks[w]
	if !ok {
		set = make(map[time.Time]struct{})
		l.weeks[w] = set
	}
	if _, seen := set[week]; seen {
		return true
	}
	set[week] = struct{}{}
	return false
}

// Used reports whether w covered the week of date.
func (l *WeekLedger) Used(w model.WorkerID, date time.Time) bool {
	_, ok := l.weeks[w][model.WeekOf(date)]
	return ok
}

// Weeks is the number of distinct weeks w has covered.
func (l *WeekLedger) Weeks(w model.WorkerID) int { return len(l.weeks[w]) }

// Size is the number of workers with at least one week.
func (l *WeekLedger) Size() int { return len(l.weeks) }
