// Package service orchestrates recommendation requests: it serves candidates
// from the snapshot store while fresh and rebuilds them through the
// acquisition pipeline when absent or stale.
package service

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/meeple/internal/adapters/repository"
	"github.com/okian/meeple/internal/domain/model"
	"github.com/okian/meeple/internal/domain/scoring"
	"github.com/okian/meeple/pkg/logger"
	"github.com/okian/meeple/pkg/metrics"
)

const (
	defaultTTL       = 30 * 24 * time.Hour
	defaultQueueSize = 10_000
	rebuildKey       = "snapshot"
)

// Service implements the API dependencies for the recommender.
type Service struct {
	mu sync.RWMutex

	// Core components
	catalog  Catalog
	store    repository.Store
	engine   *scoring.Engine
	pipeline *Pipeline
	group    singleflight.Group

	// Configuration
	ttl         time.Duration
	pageCount   int
	workerCount int
	queueSize   int
	warmOnStart bool
	clock       func() time.Time

	// State
	started  bool
	bgCtx    context.Context
	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup

	rebuilds       atomic.Int64
	rebuildsFailed atomic.Int64
	rebuildsShared atomic.Int64
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithTTL sets the snapshot freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithPageCount sets how many listing pages a rebuild scans.
func WithPageCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageCount = n
		}
	}
}

// WithWorkerCount sets the number of enrichment workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the enrichment queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWarmOnStart builds the snapshot in the background on Start when the
// stored one is absent or stale.
func WithWarmOnStart(enabled bool) Option {
	return func(s *Service) {
		s.warmOnStart = enabled
	}
}

// WithEngine replaces the recommendation engine.
func WithEngine(e *scoring.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithClock sets the clock used for snapshot stamps and ages.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over a catalog and a snapshot store.
func New(catalog Catalog, store repository.Store, opts ...Option) *Service {
	s := &Service{
		catalog:     catalog,
		store:       store,
		engine:      scoring.NewEngine(),
		ttl:         defaultTTL,
		pageCount:   defaultPageCount,
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.pipeline = NewPipeline(catalog, store,
		WithPages(s.pageCount),
		WithEnrichWorkers(s.workerCount),
		WithEnrichQueue(s.queueSize),
		WithPipelineClock(s.clock),
	)
	return s
}

// Start marks the service running and optionally warms the snapshot.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.bgCtx, s.bgCancel = context.WithCancel(context.WithoutCancel(ctx))
	s.started = true

	s.logger.Info(ctx, "recommender service started",
		logger.Int("workers", s.workerCount),
		logger.Int("pages", s.pageCount),
		logger.Duration("ttl", s.ttl),
	)

	if s.warmOnStart {
		s.bgWG.Add(1)
		go func(ctx context.Context) {
			defer s.bgWG.Done()
			if err := s.Warm(ctx); err != nil {
				s.logger.Warn(ctx, "warm-up failed", logger.Error(err))
			}
		}(s.bgCtx)
	}
	return nil
}

// Stop cancels background work, including an in-flight rebuild, and waits
// for it to return. A cancelled rebuild writes nothing.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.logger.Info(context.Background(), "stopping recommender service...")
	s.bgCancel()
	s.started = false
	s.mu.Unlock()

	s.bgWG.Wait()
	s.logger.Info(context.Background(), "recommender service stopped")
}

// Warm makes sure a fresh snapshot exists.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.Candidates(ctx)
	return err
}

// Candidates returns the stored snapshot while fresh, otherwise rebuilds it.
// Concurrent callers that find the store stale share a single rebuild.
func (s *Service) Candidates(ctx context.Context) (model.Snapshot, error) {
	snap, ok, err := s.store.ReadIfFresh(ctx, s.ttl)
	if err != nil {
		return model.Snapshot{}, model.Wrap("service.candidates", err)
	}
	if ok {
		s.cacheHits.Add(1)
		metrics.RecordCacheHit()
		metrics.UpdateSnapshotCandidates(snap.Len())
		return snap, nil
	}
	s.cacheMisses.Add(1)
	metrics.RecordCacheMiss()
	return s.rebuild(ctx)
}

// rebuild runs the pipeline on a context detached from the caller so one
// impatient caller cannot abort a rebuild others are waiting on.
func (s *Service) rebuild(ctx context.Context) (model.Snapshot, error) {
	ch := s.group.DoChan(rebuildKey, func() (interface{}, error) {
		bg := s.rebuildContext(ctx)
		// A rebuild that finished between our read and now is good enough.
		if snap, ok, err := s.store.ReadIfFresh(bg, s.ttl); err == nil && ok {
			return snap, nil
		}
		s.rebuilds.Add(1)
		snap, err := s.pipeline.Build(bg)
		if err != nil {
			s.rebuildsFailed.Add(1)
			return nil, err
		}
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return model.Snapshot{}, model.Wrap("service.rebuild", ctx.Err())
	case res := <-ch:
		if res.Shared {
			s.rebuildsShared.Add(1)
			metrics.RecordRebuildShared()
		}
		if res.Err != nil {
			return model.Snapshot{}, res.Err
		}
		snap, _ := res.Val.(model.Snapshot)
		return snap, nil
	}
}

func (s *Service) rebuildContext(ctx context.Context) context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.started && s.bgCtx != nil {
		return s.bgCtx
	}
	return context.WithoutCancel(ctx)
}

// Recommend ranks the current candidates against the favorites.
func (s *Service) Recommend(ctx context.Context, favorites []string) ([]model.Recommendation, error) {
	if len(favorites) == 0 {
		return nil, model.NewKind("service.recommend", model.ErrValidation)
	}
	snap, err := s.Candidates(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.Recommend(snap.Candidates, favorites), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        started,
		"workerCount":    s.workerCount,
		"pageCount":      s.pageCount,
		"ttlSeconds":     int64(s.ttl / time.Second),
		"rebuilds":       s.rebuilds.Load(),
		"rebuildsFailed": s.rebuildsFailed.Load(),
		"rebuildsShared": s.rebuildsShared.Load(),
		"cacheHits":      s.cacheHits.Load(),
		"cacheMisses":    s.cacheMisses.Load(),
	}

	at, ok, err := s.store.LastWrite(context.Background())
	switch {
	case err != nil:
		stats["storeError"] = err.Error()
	case ok:
		age := s.clock().Sub(at)
		stats["lastWrite"] = at.UTC().Format(time.RFC3339)
		stats["snapshotAgeSeconds"] = int64(age / time.Second)
		stats["fresh"] = age < s.ttl
		metrics.UpdateSnapshotAge(age)
	default:
		stats["fresh"] = false
	}
	return stats
}

// SnapshotAge reports how old the stored snapshot is.
func (s *Service) SnapshotAge(ctx context.Context) (time.Duration, bool, error) {
	at, ok, err := s.store.LastWrite(ctx)
	if err != nil || !ok {
		return 0, ok, err
	}
	return s.clock().Sub(at), true, nil
}
