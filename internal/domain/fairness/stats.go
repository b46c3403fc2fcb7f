package fairness

import "math"

// Stats is a running count summary using Welford's online algorithm.
// Mean and SD are integers, truncated and rounded as the thresholds expect.
type Stats struct {
	n    int
	mean float64
	m2   float64
}

// Add folds one observation into the summary.
func (s *Stats) Add(x int) {
	s.n++
	d := float64(x) - s.mean
	s.mean += d / float64(s.n)
	s.m2 += d * (float64(x) - s.mean)
}

// N is the number of observations.
func (s Stats) N() int { return s.n }

// Mean is the integer-truncated mean.
func (s Stats) Mean() int { return int(s.mean) }

// SD is the rounded sample standard deviation. It is zero below two
// observations.
func (s Stats) SD() int {
	if s.n < 2 {
		return 0
	}
	return int(math.Round(math.Sqrt(s.m2 / float64(s.n-1))))
}

// Below is the inclusive lower threshold, Mean - SD.
func (s Stats) Below() int { return s.Mean() - s.SD() }

// Above is the exclusive upper threshold, Mean + SD.
func (s Stats) Above() int { return s.Mean() + s.SD() }

// Standing places count against the thresholds.
func (s Stats) Standing(count int) Standing {
	switch {
	case count <= s.Below():
		return StandingBelow
	case count > s.Above():
		return StandingAbove
	default:
		return StandingWithin
	}
}

// Standing classifies a worker's count within its cohort.
type Standing int

const (
	StandingWithin Standing = iota
	StandingBelow
	StandingAbove
)

func (s Standing) String() string {
	switch s {
	case StandingBelow:
		return "below"
	case StandingAbove:
		return "above"
	default:
		return "within"
	}
}
