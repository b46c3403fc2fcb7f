package loadtest

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/rota/pkg/logger"
)

// ErrVerification is returned when a stored run does not match what was
// submitted.
var ErrVerification = errors.New("verification failed")

// verifyRuns fetches every run back and checks it finished with a plan for
// each generated team.
func verifyRuns(ctx context.Context, cfg *Config, runs []runResponse, stats *Stats) error {
	logger.Get().Info(ctx, "verifying runs", logger.Int("runs", len(runs)))

	client := newHTTPClient(cfg.Timeout)
	var problems []error
	for _, submitted := range runs {
		resp, err := client.Get(ctx, cfg.BaseURL+"/plans/"+submitted.ID)
		if err != nil {
			return fmt.Errorf("fetch run %s: %w", submitted.ID, err)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			problems = append(problems, fmt.Errorf("run %s: status %d", submitted.ID, resp.StatusCode))
			continue
		}
		run, err := readRun(resp)
		if err != nil {
			return err
		}
		if err := checkRun(run, cfg.Teams); err != nil {
			problems = append(problems, err)
			continue
		}
		stats.Verified++
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrVerification, errors.Join(problems...))
	}
	return nil
}

func checkRun(run runResponse, teams int) error {
	if run.Status != "done" {
		return fmt.Errorf("run %s: status %q: %s", run.ID, run.Status, run.Error)
	}
	if run.Report == nil {
		return fmt.Errorf("run %s: no report", run.ID)
	}
	if got, want := len(run.Report.Teams), min(max(teams, 1), MaxTeams); got != want {
		return fmt.Errorf("run %s: %d team plans, want %d", run.ID, got, want)
	}
	for _, t := range run.Report.Teams {
		if len(t.Sessions) == 0 {
			return fmt.Errorf("run %s: team %s has no sessions", run.ID, t.ID)
		}
	}
	return nil
}
