package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/okian/meeple/internal/smoketest"
)

// Default configuration constants.
const (
	defaultRequests    = 200
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 15 * time.Minute
	defaultTestTimeout = 30 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:10000", "Base URL of the service")
		requests  = flag.Int("requests", defaultRequests, "Number of /recommend requests to send")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		favorites = flag.String("favorites", strings.Join(smoketest.DefaultFavorites, ","), "Comma separated pool of favorite titles")
		logFile   = flag.String("log", "", "Log file for test output (default: recommend_check_TIMESTAMP.log)")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoketest.ShowHelp(os.Stdout)
		return
	}

	if err := smoketest.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &smoketest.Config{
		BaseURL:   *baseURL,
		Requests:  *requests,
		Workers:   *workers,
		Timeout:   *timeout,
		Favorites: smoketest.ParseFavorites(*favorites),
		LogFile:   *logFile,
		Verbose:   *verbose,
	}

	if _, err := smoketest.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Check failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
