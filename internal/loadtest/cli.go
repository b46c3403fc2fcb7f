package loadtest

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/rota/pkg/logger"
)

// SetupLogging logs to both stdout and a file. If logFile is empty, a
// timestamped filename is generated.
func SetupLogging(logFile string) error {
	if logFile == "" {
		logFile = "loadtest_" + time.Now().Format("20060102_150405") + ".log"
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Init(logger.WithWriter(io.MultiWriter(os.Stdout, file))); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ShowHelp prints usage information.
func ShowHelp() {
	os.Stdout.WriteString(`rota load test
==============

Generates roster documents, posts them to a running "rota" server in
serve mode and checks every stored run.

Usage:
  go run ./cmd/loadtest [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -documents int     Documents to submit (default 20)
  -teams int         Teams per document, at most 26 (default 6)
  -pairs int         Linked pairs per team (default 4)
  -weeks int         Term length in weeks (default 4)
  -absences float    Chance of a one-day absence per worker (default 0.1)
  -seed int          Seed of the first document (default 1)
  -workers int       Concurrent submitters (default CPU cores)
  -timeout duration  HTTP request timeout (default 30s)
  -output string     Save the first generated document here
  -log string        Log file (default: loadtest_TIMESTAMP.log)
  -verbose           Log every request
  -help              Show this help message
`)
}
