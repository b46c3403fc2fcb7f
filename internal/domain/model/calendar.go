package model

import (
	"fmt"
	"strings"
)

// Special marks calendar days that change how sessions run.
type Special int

const (
	SpecialNone Special = iota
	SpecialLecture
	SpecialBreak
)

func (s Special) String() string {
	switch s {
	case SpecialLecture:
		return "lecture"
	case SpecialBreak:
		return "break"
	default:
		return "none"
	}
}

// ParseSpecial accepts "none", "lecture" and "break".
func ParseSpecial(s string) (Special, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return SpecialNone, nil
	case "lecture":
		return SpecialLecture, nil
	case "break":
		return SpecialBreak, nil
	default:
		return SpecialNone, fmt.Errorf("%w: special %q", ErrInvalidValue, s)
	}
}

// OpenMode tells which half-days of a date are open.
type OpenMode int

const (
	OpenBoth OpenMode = iota
	OpenAMOnly
	OpenPMOnly
	OpenClosed
)

// Periods returns the open periods in order.
func (m OpenMode) Periods() []Period {
	switch m {
	case OpenBoth:
		return []Period{PeriodAM, PeriodPM}
	case OpenAMOnly:
		return []Period{PeriodAM}
	case OpenPMOnly:
		return []Period{PeriodPM}
	default:
		return nil
	}
}

func (m OpenMode) String() string {
	switch m {
	case OpenAMOnly:
		return "am"
	case OpenPMOnly:
		return "pm"
	case OpenClosed:
		return "closed"
	default:
		return "both"
	}
}

// ParseOpenMode accepts "both", "am", "pm" and "closed".
func ParseOpenMode(s string) (OpenMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both":
		return OpenBoth, nil
	case "am":
		return OpenAMOnly, nil
	case "pm":
		return OpenPMOnly, nil
	case "closed":
		return OpenClosed, nil
	default:
		return OpenBoth, fmt.Errorf("%w: open mode %q", ErrInvalidValue, s)
	}
}
