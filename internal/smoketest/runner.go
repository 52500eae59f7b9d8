package smoketest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/okian/meeple/pkg/logger"
)

var (
	ErrUnhealthy      = errors.New("service health check failed")
	ErrEmptyAccepted  = errors.New("empty favorites were not rejected")
	ErrChecksFailed   = errors.New("recommendation checks failed")
	ErrNoFavoritePool = errors.New("favorites pool is empty")
)

// Run executes the complete smoke check and returns its statistics.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("recommend-check")

	log.Info(ctx, "starting recommendation check",
		logger.String("baseURL", config.BaseURL),
		logger.Int("requests", config.Requests),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Int("favorites", len(config.Favorites)))

	if len(config.Favorites) == 0 {
		return stats, ErrNoFavoritePool
	}
	client := newHTTPClient(strings.TrimRight(config.BaseURL, "/"), config.Timeout)

	// Step 1: service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, err
	}

	// Step 2: empty favorites must be a 400
	if err := checkEmptyFavorites(ctx, client); err != nil {
		return stats, err
	}

	// Step 3: concurrent recommendations, verified as they arrive
	requests := generateRequests(config.Favorites, config.Requests)
	submitRequests(ctx, log, config, client, requests, stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if stats.RequestsFailed > 0 || stats.Violations > 0 {
		return stats, fmt.Errorf("%w: %d failed, %d violations", ErrChecksFailed, stats.RequestsFailed, stats.Violations)
	}
	log.Info(ctx, "check completed successfully")
	return stats, nil
}

func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	status, _, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	// /healthz serves Prometheus exposition; any 200 is healthy
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, status)
	}
	return nil
}

func checkEmptyFavorites(ctx context.Context, client *HTTPClient) error {
	status, body, err := client.Post(ctx, "/recommend", RecommendRequest{Favorites: []string{}})
	if err != nil {
		return fmt.Errorf("empty favorites request: %w", err)
	}
	if status != http.StatusBadRequest {
		return fmt.Errorf("%w: status %d", ErrEmptyAccepted, status)
	}
	var e ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil || e.Error != EmptyFavoritesMsg {
		return fmt.Errorf("%w: body %s", ErrEmptyAccepted, strings.TrimSpace(string(body)))
	}
	return nil
}

// submitRequests fans the requests out to workers. The first result per
// distinct input becomes the reference every later identical input must match.
func submitRequests(ctx context.Context, log logger.Logger, config *Config, client *HTTPClient, requests [][]string, stats *Stats) {
	workers := config.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		sent, ok, failed, violations int64
		mu                           sync.Mutex
		reference                    = make(map[string][]Recommendation)
		wg                           sync.WaitGroup
	)

	jobs := make(chan []string, workers*WorkerChannelMultiplier)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for favs := range jobs {
				atomic.AddInt64(&sent, 1)
				recs, err := client.recommend(ctx, favs)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					log.Warn(ctx, "request failed", logger.Any("favorites", favs), logger.Error(err))
					continue
				}
				atomic.AddInt64(&ok, 1)
				if err := verifyResponse(recs); err != nil {
					atomic.AddInt64(&violations, 1)
					log.Error(ctx, "response violates contract", logger.Any("favorites", favs), logger.Error(err))
					continue
				}

				key := requestKey(favs)
				mu.Lock()
				ref, seen := reference[key]
				if !seen {
					reference[key] = recs
				}
				mu.Unlock()
				if seen {
					if err := verifySame(ref, recs); err != nil {
						atomic.AddInt64(&violations, 1)
						log.Error(ctx, "nondeterministic response", logger.Any("favorites", favs), logger.Error(err))
					}
				}
				log.Debug(ctx, "request verified", logger.Any("favorites", favs), logger.Int("results", len(recs)))
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, favs := range requests {
			select {
			case <-ctx.Done():
				return
			case jobs <- favs:
			}
		}
	}()
	wg.Wait()

	stats.RequestsSent = int(atomic.LoadInt64(&sent))
	stats.RequestsSuccessful = int(atomic.LoadInt64(&ok))
	stats.RequestsFailed = int(atomic.LoadInt64(&failed))
	stats.Violations = int(atomic.LoadInt64(&violations))
	stats.DistinctInputs = len(reference)
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, perSecond float64
	if stats.RequestsSent > 0 {
		successRate = float64(stats.RequestsSuccessful) / float64(stats.RequestsSent) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.RequestsSent) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("requestsSent", stats.RequestsSent),
		logger.Int("requestsSuccessful", stats.RequestsSuccessful),
		logger.Int("requestsFailed", stats.RequestsFailed),
		logger.Int("violations", stats.Violations),
		logger.Int("distinctInputs", stats.DistinctInputs),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("requestsPerSecond", perSecond))
}
