// Package roster loads roster documents: the term, its calendar, the teams
// with their position tables, the workers, absences and duty moratoria.
//
// Documents are YAML. JSON bodies parse too, being valid YAML. Dates are
// YYYY-MM-DD strings.
package roster

// Document is the raw roster document.
type Document struct {
	Term      Term         `koanf:"term" yaml:"term"`
	Calendar  Calendar     `koanf:"calendar" yaml:"calendar"`
	Teams     []Team       `koanf:"teams" yaml:"teams"`
	Workers   []Worker     `koanf:"workers" yaml:"workers"`
	Absences  []Absence    `koanf:"absences" yaml:"absences,omitempty"`
	Moratoria []Moratorium `koanf:"moratoria" yaml:"moratoria,omitempty"`
}

// Term bounds the planned dates.
type Term struct {
	Start string `koanf:"start" yaml:"start"`
	End   string `koanf:"end" yaml:"end"`
}

// Calendar sets the week priorities and day overrides.
type Calendar struct {
	// FirstPriority is the priority of the term's first week; later weeks
	// alternate unless pinned in Weeks.
	FirstPriority string            `koanf:"first_priority" yaml:"first_priority"`
	Weeks         map[string]string `koanf:"weeks" yaml:"weeks,omitempty"`
	Days          []Day             `koanf:"days" yaml:"days,omitempty"`
}

// Day overrides one date.
type Day struct {
	Date    string `koanf:"date" yaml:"date"`
	Open    string `koanf:"open" yaml:"open,omitempty"`
	Special string `koanf:"special" yaml:"special,omitempty"`
}

// Team is a group practice with its own positions.
type Team struct {
	ID             string            `koanf:"id" yaml:"id"`
	Program        string            `koanf:"program" yaml:"program,omitempty"`
	Capacity       int               `koanf:"capacity" yaml:"capacity,omitempty"`
	Strategy       string            `koanf:"strategy" yaml:"strategy,omitempty"`
	OrphanRecovery bool              `koanf:"orphan_recovery" yaml:"orphan_recovery,omitempty"`
	Positions      Positions         `koanf:"positions" yaml:"positions"`
	Reserved       map[string]string `koanf:"reserved" yaml:"reserved,omitempty"`
}

// Positions are the team's position tables.
type Positions struct {
	Shared   []string            `koanf:"shared" yaml:"shared"`
	Keyed    map[string][]string `koanf:"keyed" yaml:"keyed,omitempty"`
	FridayPM []string            `koanf:"friday_pm" yaml:"friday_pm,omitempty"`
}

// Worker is one roster row.
type Worker struct {
	ID            string `koanf:"id" yaml:"id"`
	Name          string `koanf:"name" yaml:"name,omitempty"`
	Cohort        string `koanf:"cohort" yaml:"cohort"`
	Program       string `koanf:"program" yaml:"program,omitempty"`
	Team          string `koanf:"team" yaml:"team"`
	Priority      string `koanf:"priority" yaml:"priority"`
	Cluster       string `koanf:"cluster" yaml:"cluster,omitempty"`
	Pod           string `koanf:"pod" yaml:"pod,omitempty"`
	Partner       string `koanf:"partner" yaml:"partner,omitempty"`
	PrimaryLink   string `koanf:"primary_link" yaml:"primary_link,omitempty"`
	SecondaryLink string `koanf:"secondary_link" yaml:"secondary_link,omitempty"`
}

// Absence takes a worker out between two dates, optionally for one period.
type Absence struct {
	Worker string `koanf:"worker" yaml:"worker"`
	From   string `koanf:"from" yaml:"from"`
	To     string `koanf:"to" yaml:"to"`
	Period string `koanf:"period" yaml:"period,omitempty"`
}

// Moratorium keeps a cohort off a duty over a date range.
type Moratorium struct {
	Duty            string   `koanf:"duty" yaml:"duty"`
	Cohort          string   `koanf:"cohort" yaml:"cohort"`
	Programs        []string `koanf:"programs" yaml:"programs,omitempty"`
	From            string   `koanf:"from" yaml:"from,omitempty"`
	To              string   `koanf:"to" yaml:"to,omitempty"`
	ExemptLectureAM bool     `koanf:"exempt_lecture_am" yaml:"exempt_lecture_am,omitempty"`
	ExemptFridayPM  bool     `koanf:"exempt_friday_pm" yaml:"exempt_friday_pm,omitempty"`
}
