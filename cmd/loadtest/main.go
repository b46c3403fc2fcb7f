package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/rota/internal/loadtest"
)

// Default configuration constants.
const (
	defaultDocuments   = 20
	defaultTeams       = 6
	defaultPairs       = 4
	defaultWeeks       = 4
	defaultAbsenceRate = 0.1
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		documents = flag.Int("documents", defaultDocuments, "Documents to submit")
		teams     = flag.Int("teams", defaultTeams, "Teams per document")
		pairs     = flag.Int("pairs", defaultPairs, "Linked pairs per team")
		weeks     = flag.Int("weeks", defaultWeeks, "Term length in weeks")
		absences  = flag.Float64("absences", defaultAbsenceRate, "Chance of a one-day absence per worker")
		seed      = flag.Int64("seed", 1, "Seed of the first document")
		workers   = flag.Int("workers", runtime.NumCPU(), "Concurrent submitters")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		output    = flag.String("output", "", "Save the first generated document here")
		logFile   = flag.String("log", "", "Log file (default: loadtest_TIMESTAMP.log)")
		verbose   = flag.Bool("verbose", false, "Log every request")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	if err := loadtest.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &loadtest.Config{
		BaseURL:     *baseURL,
		Documents:   *documents,
		Teams:       *teams,
		Pairs:       *pairs,
		Weeks:       *weeks,
		AbsenceRate: *absences,
		Start:       time.Now().AddDate(0, 0, 7),
		Seed:        *seed,
		Workers:     *workers,
		Timeout:     *timeout,
		OutputFile:  *output,
		Verbose:     *verbose,
	}
	if _, err := loadtest.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("load test failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
