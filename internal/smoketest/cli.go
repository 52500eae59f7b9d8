package smoketest

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/meeple/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) error {
	if logFile == "" {
		logFile = "recommend_check_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file), "text"); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the smoke checker.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Meeple Recommendation Check
===========================

Fires concurrent /recommend requests at a running server and verifies the
responses: at most 5 results, no repeated (name, image) entry, identical output for
identical input, and 400 for an empty favorites list.

Usage:
  go run ./cmd/recommend-check [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:10000")
  -requests int
        Number of /recommend requests to send (default 200)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout; the first request may trigger a full rebuild (default 15m)
  -favorites string
        Comma separated pool of favorite titles
  -log string
        Log file for test output (default: recommend_check_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Check a local server
  go run ./cmd/recommend-check

  # Custom pool and concurrency
  go run ./cmd/recommend-check -favorites "Catan,Azul,Wingspan" -requests 1000 -workers 32
`)
}
