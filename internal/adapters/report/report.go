// Package report turns team plans into a flat document and encodes it as
// YAML or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/internal/domain/planner"
	"gopkg.in/yaml.v3"
)

// Formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Report is the encoded outcome of one run.
type Report struct {
	RunID string `yaml:"run_id" json:"run_id"`
	Seed  int64  `yaml:"seed" json:"seed"`
	Teams []Team `yaml:"teams" json:"teams"`
}

// Team is one team's plan.
type Team struct {
	ID       string    `yaml:"id" json:"id"`
	Sessions []Session `yaml:"sessions" json:"sessions"`
	Duties   []Duty    `yaml:"duties,omitempty" json:"duties,omitempty"`
	Fairness Fairness  `yaml:"fairness" json:"fairness"`
}

// Session is the seating of one half-day.
type Session struct {
	Date     string   `yaml:"date" json:"date"`
	Period   string   `yaml:"period" json:"period"`
	Priority string   `yaml:"priority" json:"priority"`
	Scenario string   `yaml:"scenario" json:"scenario"`
	Splits   int      `yaml:"splits" json:"splits"`
	Strategy string   `yaml:"strategy" json:"strategy"`
	Seats    []Seat   `yaml:"seats" json:"seats"`
	Orphans  []Orphan `yaml:"orphans,omitempty" json:"orphans,omitempty"`
	Awaiting []Unit   `yaml:"awaiting,omitempty" json:"awaiting,omitempty"`
}

// Unit lists a unit's workers and kind.
type Unit struct {
	Kind    string   `yaml:"kind" json:"kind"`
	Workers []string `yaml:"workers" json:"workers"`
	Label   string   `yaml:"label,omitempty" json:"label,omitempty"`
}

// Seat is a filled position.
type Seat struct {
	Position string `yaml:"position" json:"position"`
	Provider string `yaml:"provider" json:"provider"`
	Unit     Unit   `yaml:"unit" json:"unit"`
	Toggled  bool   `yaml:"toggled,omitempty" json:"toggled,omitempty"`
}

// Orphan is a unit left without a position.
type Orphan struct {
	Provider string `yaml:"provider,omitempty" json:"provider,omitempty"`
	Reason   string `yaml:"reason" json:"reason"`
	Unit     Unit   `yaml:"unit" json:"unit"`
}

// Duty is one duty's matching outcome.
type Duty struct {
	Label     string   `yaml:"label" json:"label"`
	Passes    int      `yaml:"passes" json:"passes"`
	Matches   []Match  `yaml:"matches" json:"matches"`
	Unmatched []string `yaml:"unmatched,omitempty" json:"unmatched,omitempty"`
}

// Match is a covered duty session.
type Match struct {
	Session string `yaml:"session" json:"session"`
	Worker  string `yaml:"worker" json:"worker"`
	Mode    string `yaml:"mode" json:"mode"`
}

// Fairness summarises the rebalancing.
type Fairness struct {
	Toggles   int             `yaml:"toggles" json:"toggles"`
	Stats     map[string]Stat `yaml:"stats,omitempty" json:"stats,omitempty"`
	Transfers []Transfer      `yaml:"transfers,omitempty" json:"transfers,omitempty"`
}

// Stat is a cohort's provider count distribution.
type Stat struct {
	Workers int `yaml:"workers" json:"workers"`
	Mean    int `yaml:"mean" json:"mean"`
	SD      int `yaml:"sd" json:"sd"`
}

// Transfer is a batch of assignments moved to a worker.
type Transfer struct {
	To    string `yaml:"to" json:"to"`
	From  string `yaml:"from" json:"from"`
	Moved int    `yaml:"moved" json:"moved"`
}

// Build flattens plans into a Report. Teams keep the given order.
func Build(runID string, seed int64, plans []planner.TeamPlan) Report {
	r := Report{RunID: runID, Seed: seed, Teams: make([]Team, 0, len(plans))}
	for _, p := range plans {
		r.Teams = append(r.Teams, team(p))
	}
	return r
}

func team(p planner.TeamPlan) Team {
	t := Team{ID: string(p.Team), Sessions: make([]Session, 0, len(p.Sessions))}
	for _, sp := range p.Sessions {
		s := Session{
			Date:     sp.Session.Date.Format(model.DateLayout),
			Period:   sp.Session.Period.String(),
			Priority: sp.Session.Priority.String(),
			Scenario: sp.Scenario.String(),
			Splits:   sp.Splits,
			Strategy: string(sp.Strategy),
			Seats:    []Seat{},
		}
		for _, a := range sp.Seating.Assignments() {
			s.Seats = append(s.Seats, Seat{
				Position: string(a.Position()),
				Provider: string(a.Provider()),
				Unit:     unit(a.Unit()),
				Toggled:  a.Toggled(),
			})
		}
		for _, o := range sp.Seating.Orphans {
			s.Orphans = append(s.Orphans, Orphan{Provider: string(o.Provider), Reason: string(o.Reason), Unit: unit(o.Unit)})
		}
		for _, u := range sp.Awaiting {
			s.Awaiting = append(s.Awaiting, unit(u))
		}
		t.Sessions = append(t.Sessions, s)
	}

	for _, res := range p.Duties {
		d := Duty{Label: string(res.Duty), Passes: res.Passes, Matches: make([]Match, 0, len(res.Matches))}
		for _, m := range res.Matches {
			d.Matches = append(d.Matches, Match{Session: m.Session.String(), Worker: string(m.Worker), Mode: m.Mode.String()})
		}
		for _, s := range res.Unmatched {
			d.Unmatched = append(d.Unmatched, s.String())
		}
		t.Duties = append(t.Duties, d)
	}

	t.Fairness.Toggles = p.Fairness.Toggles()
	if len(p.Fairness.Stats) > 0 {
		t.Fairness.Stats = make(map[string]Stat, len(p.Fairness.Stats))
		for c, st := range p.Fairness.Stats {
			t.Fairness.Stats[c.String()] = Stat{Workers: st.N(), Mean: st.Mean(), SD: st.SD()}
		}
	}
	for _, tr := range p.Fairness.Transfers {
		t.Fairness.Transfers = append(t.Fairness.Transfers, Transfer{To: string(tr.To), From: string(tr.From), Moved: len(tr.Moved)})
	}
	return t
}

func unit(u model.Unit) Unit {
	out := Unit{Kind: u.Kind().String(), Label: string(u.Label())}
	for _, w := range u.Workers() {
		out.Workers = append(out.Workers, string(w))
	}
	slices.Sort(out.Workers)
	return out
}

// Encode writes r to w in format.
func Encode(w io.Writer, format string, r Report) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteFile encodes r into path, or to stdout when path is empty.
func WriteFile(path, format string, r Report) error {
	if path == "" {
		return Encode(os.Stdout, format, r)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := Encode(f, format, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
