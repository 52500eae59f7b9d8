package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/meeple/internal/adapters/mq/queue"
	"github.com/okian/meeple/internal/adapters/mq/worker"
	"github.com/okian/meeple/internal/adapters/repository"
	"github.com/okian/meeple/internal/domain/dedupe"
	"github.com/okian/meeple/internal/domain/model"
	"github.com/okian/meeple/pkg/logger"
	"github.com/okian/meeple/pkg/metrics"
)

const (
	defaultPageCount  = 20
	expectedPageRows  = 100
	enqueueRetryDelay = 10 * time.Millisecond
)

// Catalog is the remote source the pipeline acquires candidates from.
type Catalog interface {
	ListPage(ctx context.Context, page int) ([]model.ListingEntry, error)
	FetchDetail(ctx context.Context, id string) (model.Detail, error)
}

// Pipeline scans the listing pages, enriches every entry and persists the
// resulting snapshot.
type Pipeline struct {
	catalog     Catalog
	store       repository.Store
	pageCount   int
	workerCount int
	queueSize   int
	clock       func() time.Time
	logger      logger.Logger
}

// PipelineOption applies a configuration option to the Pipeline.
type PipelineOption func(*Pipeline)

// WithPages sets how many listing pages are scanned.
func WithPages(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.pageCount = n
		}
	}
}

// WithEnrichWorkers sets the number of concurrent detail workers.
func WithEnrichWorkers(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.workerCount = n
		}
	}
}

// WithEnrichQueue bounds the enrichment queue.
func WithEnrichQueue(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// WithPipelineClock sets the clock that stamps written snapshots.
func WithPipelineClock(clock func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithPipelineLogger sets a custom logger.
func WithPipelineLogger(l logger.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline creates a pipeline reading from catalog and writing to store.
func NewPipeline(catalog Catalog, store repository.Store, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		catalog:     catalog,
		store:       store,
		pageCount:   defaultPageCount,
		workerCount: 1,
		queueSize:   defaultQueueSize,
		clock:       time.Now,
		logger:      logger.Get().Named("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Build acquires a complete snapshot and writes it to the store.
//
// Listing pages are fetched in order and any listing failure aborts the run.
// Entries whose detail cannot be fetched are dropped. The surviving
// candidates keep their discovery order. Nothing is written unless the run
// completes, so an aborted run leaves the previous snapshot in place.
func (p *Pipeline) Build(ctx context.Context) (model.Snapshot, error) {
	runID := uuid.NewString()
	start := time.Now()
	metrics.RecordRebuildStarted()
	p.logger.Info(ctx, "rebuild started", logger.String("run_id", runID), logger.Int("pages", p.pageCount))

	snap, err := p.build(ctx, runID)
	metrics.RecordRebuildDuration(time.Since(start))
	if err != nil {
		metrics.RecordRebuildFailed()
		p.logger.Error(ctx, "rebuild aborted", logger.String("run_id", runID), logger.Error(err))
		return model.Snapshot{}, err
	}

	metrics.UpdateSnapshotCandidates(snap.Len())
	p.logger.Info(ctx, "rebuild finished",
		logger.String("run_id", runID),
		logger.Int("candidates", snap.Len()),
		logger.Duration("took", time.Since(start)),
	)
	return snap, nil
}

func (p *Pipeline) build(ctx context.Context, runID string) (model.Snapshot, error) {
	const op = "pipeline.build"

	entries, err := p.list(ctx, runID)
	if err != nil {
		return model.Snapshot{}, model.Wrap(op, err)
	}

	candidates, skipped, err := p.enrich(ctx, entries)
	if err != nil {
		return model.Snapshot{}, model.Wrap(op, err)
	}
	if skipped > 0 {
		p.logger.Warn(ctx, "items skipped during enrichment",
			logger.String("run_id", runID), logger.Int("skipped", skipped))
	}

	snap := model.Snapshot{Candidates: candidates, WrittenAt: p.clock()}
	if err := p.store.Write(ctx, snap); err != nil {
		return model.Snapshot{}, model.Wrap(op, err)
	}
	return snap, nil
}

// list collects the unique listing entries of every page in discovery order.
// Rankings can shift between page fetches; the first sighting of an id wins.
func (p *Pipeline) list(ctx context.Context, runID string) ([]model.ListingEntry, error) {
	seen := dedupe.NewInMemoryDeduper(p.pageCount * expectedPageRows)
	entries := make([]model.ListingEntry, 0, p.pageCount*expectedPageRows)

	for page := 1; page <= p.pageCount; page++ {
		got, err := p.catalog.ListPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("listing page %d: %w", page, err)
		}
		for _, e := range got {
			if seen.SeenAndRecord(ctx, e.ID) {
				metrics.RecordListingDuplicate()
				p.logger.Debug(ctx, "duplicate listing entry dropped",
					logger.String("run_id", runID), logger.String("id", e.ID), logger.Int("page", page))
				continue
			}
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// enrich fetches the detail of every entry through the worker pool.
func (p *Pipeline) enrich(ctx context.Context, entries []model.ListingEntry) ([]model.Candidate, int, error) {
	sink := newCollector(len(entries))
	if len(entries) == 0 {
		return sink.candidates(), 0, nil
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(p.queueSize))
	pool := worker.NewPool(p.workerCount, q, p.catalog, sink)
	pool.Start(ctx)
	p.logger.Debug(ctx, "enrichment started",
		logger.Int("workers", pool.Size()), logger.Int("jobs", len(entries)))

	if err := p.produce(ctx, q, entries); err != nil {
		// Abandoned run: stop workers after their current job.
		if serr := pool.Shutdown(context.WithoutCancel(ctx)); serr != nil {
			p.logger.Warn(ctx, "enrichment workers did not stop in time", logger.Error(serr))
		}
		pool.Wait()
		return nil, 0, err
	}
	_ = q.Close()
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	return sink.candidates(), sink.skippedCount(), nil
}

// produce feeds every entry to the queue, waiting for room when it is full.
func (p *Pipeline) produce(ctx context.Context, q queue.Queue, entries []model.ListingEntry) error {
	for seq, e := range entries {
		job := queue.Job{Seq: seq, Entry: e}
		for !q.Enqueue(ctx, job) {
			if q.IsClosed() {
				return fmt.Errorf("enqueue job %d: %w", seq, queue.ErrQueueClosed)
			}
			p.logger.Debug(ctx, "enrichment queue full, waiting",
				logger.Int("seq", seq), logger.Int("queued", q.Len(ctx)))
			timer := time.NewTimer(enqueueRetryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return nil
}

// collector slots each enriched candidate at its discovery position.
type collector struct {
	mu      sync.Mutex
	slots   []*model.Candidate
	skipped int
}

func newCollector(n int) *collector {
	return &collector{slots: make([]*model.Candidate, n)}
}

func (c *collector) Accept(seq int, cand model.Candidate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq >= 0 && seq < len(c.slots) {
		c.slots[seq] = &cand
	}
}

func (c *collector) Reject(int, model.ListingEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skipped++
}

func (c *collector) skippedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.skipped
}

func (c *collector) candidates() []model.Candidate {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Candidate, 0, len(c.slots))
	for _, cand := range c.slots {
		if cand != nil {
			out = append(out, *cand)
		}
	}
	return out
}
