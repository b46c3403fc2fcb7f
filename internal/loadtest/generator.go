package loadtest

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/okian/rota/internal/adapters/roster"
	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/pkg/logger"
	"gopkg.in/yaml.v3"
)

// MaxTeams is the number of single-letter team ids.
const MaxTeams = 26

// Shape sizes a generated roster.
type Shape struct {
	Teams       int
	Pairs       int
	Weeks       int
	AbsenceRate float64
	Start       time.Time
}

// Generate builds a roster document of linked senior/junior pairs. Teams are
// named A, B, ... so the default rotation applies to them. Seniors of
// neighbouring pairs are partners, as are their juniors.
func Generate(rng *rand.Rand, shape Shape) roster.Document {
	teams := min(max(shape.Teams, 1), MaxTeams)
	pairs := max(shape.Pairs, 1)
	weeks := max(shape.Weeks, 1)
	start := model.WeekOf(shape.Start)
	end := start.AddDate(0, 0, 7*(weeks-1)+4)

	doc := roster.Document{
		Term:     roster.Term{Start: start.Format(time.DateOnly), End: end.Format(time.DateOnly)},
		Calendar: roster.Calendar{FirstPriority: "upper"},
	}
	for t := 0; t < teams; t++ {
		id := string(rune('A' + t))
		positions := make([]string, 0, 5*pairs)
		for p := 1; p <= 5*pairs; p++ {
			positions = append(positions, fmt.Sprintf("%s-p%d", id, p))
		}
		doc.Teams = append(doc.Teams, roster.Team{
			ID:        id,
			Capacity:  3 * pairs,
			Positions: roster.Positions{Shared: positions},
		})

		for k := 0; k < pairs; k++ {
			senior := fmt.Sprintf("%s-s%d", id, k)
			junior := fmt.Sprintf("%s-j%d", id, k)
			upper, lower := "upper", "lower"
			if rng.Intn(2) == 1 {
				upper, lower = lower, upper
			}
			s := roster.Worker{ID: senior, Cohort: "senior", Team: id, Priority: upper, PrimaryLink: junior}
			j := roster.Worker{ID: junior, Cohort: "junior", Team: id, Priority: lower, PrimaryLink: senior}
			if n := k ^ 1; n < pairs {
				s.Partner = fmt.Sprintf("%s-s%d", id, n)
				j.Partner = fmt.Sprintf("%s-j%d", id, n)
			}
			doc.Workers = append(doc.Workers, s, j)
		}
	}

	days := 7*(weeks-1) + 5
	for _, w := range doc.Workers {
		if rng.Float64() >= shape.AbsenceRate {
			continue
		}
		offset := rng.Intn(days)
		if offset%7 > 4 {
			offset -= offset%7 - 4
		}
		day := start.AddDate(0, 0, offset).Format(time.DateOnly)
		period := "AM"
		if rng.Intn(2) == 1 {
			period = "PM"
		}
		doc.Absences = append(doc.Absences, roster.Absence{Worker: w.ID, From: day, To: day, Period: period})
	}
	return doc
}

// generateDocuments encodes cfg.Documents rosters as YAML.
func generateDocuments(ctx context.Context, cfg *Config, stats *Stats) ([][]byte, error) {
	logger.Get().Info(ctx, "generating roster documents",
		logger.Int("documents", cfg.Documents),
		logger.Int("teams", cfg.Teams),
		logger.Int("pairs", cfg.Pairs))

	out := make([][]byte, 0, cfg.Documents)
	for i := 0; i < cfg.Documents; i++ {
		doc := Generate(rand.New(rand.NewSource(cfg.Seed+int64(i))), Shape{
			Teams:       cfg.Teams,
			Pairs:       cfg.Pairs,
			Weeks:       cfg.Weeks,
			AbsenceRate: cfg.AbsenceRate,
			Start:       cfg.Start,
		})
		raw, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode document %d: %w", i, err)
		}
		out = append(out, raw)
		stats.Generated++
	}
	return out, nil
}
