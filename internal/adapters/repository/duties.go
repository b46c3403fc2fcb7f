package repository

import (
	"sync"

	"github.com/okian/rota/internal/domain/model"
	"github.com/puzpuzpuz/xsync/v4"
)

type dutyKey struct {
	duty    model.DutyLabel
	session model.SessionKey
}

// DutyRoster records which worker covers each duty session, across teams.
// Each team writes inside its own exclusive section.
type DutyRoster struct {
	locks   *xsync.Map[model.TeamID, *sync.Mutex]
	entries *xsync.Map[dutyKey, model.WorkerID]
}

// NewDutyRoster creates an empty DutyRoster.
func NewDutyRoster() *DutyRoster {
	return &DutyRoster{
		locks:   xsync.NewMap[model.TeamID, *sync.Mutex](),
		entries: xsync.NewMap[dutyKey, model.WorkerID](),
	}
}

// Lock enters team's exclusive section. Call the returned func to leave it.
func (d *DutyRoster) Lock(team model.TeamID) func() {
	mu, _ := d.locks.LoadOrStore(team, &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}

// Put records w as the duty's worker for s, replacing any previous entry.
func (d *DutyRoster) Put(duty model.DutyLabel, s model.Session, w model.WorkerID) {
	d.entries.Store(dutyKey{duty: duty, session: s.Key()}, w)
}

// Get returns the duty's worker for s.
func (d *DutyRoster) Get(duty model.DutyLabel, s model.Session) (model.WorkerID, bool) {
	return d.entries.Load(dutyKey{duty: duty, session: s.Key()})
}

// Len returns the number of recorded duty sessions.
func (d *DutyRoster) Len() int {
	return d.entries.Size()
}
