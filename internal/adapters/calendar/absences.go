package calendar

import (
	"time"

	"github.com/okian/rota/internal/domain/model"
)

// Absence takes a worker out of every session between From and To
// inclusive. A nil Period covers both halves of each day.
type Absence struct {
	Worker model.WorkerID
	From   time.Time
	To     time.Time
	Period *model.Period
}

func (a Absence) covers(s model.Session) bool {
	d := model.Day(s.Date)
	if d.Before(model.Day(a.From)) || d.After(model.Day(a.To)) {
		return false
	}
	return a.Period == nil || *a.Period == s.Period
}

// Absences reports worker availability from a list of absence windows.
type Absences struct {
	by map[model.WorkerID][]Absence
}

// NewAbsences indexes list by worker.
func NewAbsences(list []Absence) *Absences {
	a := &Absences{by: make(map[model.WorkerID][]Absence)}
	for _, ab := range list {
		a.by[ab.Worker] = append(a.by[ab.Worker], ab)
	}
	return a
}

// Available is false when any of w's absences covers s.
func (a *Absences) Available(w model.WorkerID, s model.Session) bool {
	for _, ab := range a.by[w] {
		if ab.covers(s) {
			return false
		}
	}
	return true
}
