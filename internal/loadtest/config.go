package loadtest

import (
	"time"

	"github.com/okian/rota/internal/adapters/report"
)

// Config holds configuration for a load test run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Documents   int           // Number of roster documents to submit
	Teams       int           // Teams per document
	Pairs       int           // Linked pairs per team
	Weeks       int           // Term length in weeks
	AbsenceRate float64       // Chance of a one-day absence per worker
	Start       time.Time     // Term start; moved back to its Monday
	Seed        int64         // Seed of the first document; later ones add their index
	Workers     int           // Number of concurrent submitters
	Timeout     time.Duration // HTTP request timeout
	OutputFile  string        // Where to save the first generated document
	Verbose     bool          // Log every request
}

// Stats holds load test statistics.
type Stats struct {
	Generated int
	Submitted int
	Succeeded int
	Rejected  int
	Failed    int
	Verified  int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// runResponse mirrors the plan API run body.
type runResponse struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	Report *report.Report `json:"report,omitempty"`
}
