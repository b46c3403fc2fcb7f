package matching

import (
	"fmt"

	"github.com/okian/rota/internal/domain/model"
)

// Mode restricts which unit kinds may supply a duty worker.
type Mode int

const (
	ModeDefault Mode = iota
	ModeSecondary
	ModePrimary
	ModeBestEffort
)

func (m Mode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeSecondary:
		return "secondary"
	case ModePrimary:
		return "primary"
	case ModeBestEffort:
		return "best-effort"
	default:
		return fmt.Sprintf("mode-%d", int(m))
	}
}

// Includes reports whether units of kind are eligible in this mode.
func (m Mode) Includes(kind model.Kind) bool {
	switch m {
	case ModeDefault:
		return !kind.IsSolo()
	case ModeSecondary:
		return kind == model.KindSeniorSolo || kind == model.KindJuniorSolo || kind == model.KindMergedPair
	case ModePrimary:
		return kind == model.KindLinkedPair || kind.IsPlusExtra()
	case ModeBestEffort:
		return true
	default:
		return false
	}
}

// Duty is a rotating assignment covered by one worker per session.
type Duty struct {
	Label  model.DutyLabel
	Ladder []Mode
}

// Built-in duties.
var (
	Emergency = Duty{Label: "emergency", Ladder: []Mode{ModeDefault, ModeSecondary, ModePrimary}}
	Overflow  = Duty{Label: "overflow", Ladder: []Mode{ModePrimary, ModeSecondary, ModeDefault}}
)
