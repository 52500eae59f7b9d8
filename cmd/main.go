package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/meeple/internal/adapters/catalog"
	"github.com/okian/meeple/internal/adapters/http/api"
	"github.com/okian/meeple/internal/adapters/http/site"
	"github.com/okian/meeple/internal/adapters/http/swagger"
	"github.com/okian/meeple/internal/adapters/pacing"
	"github.com/okian/meeple/internal/adapters/repository"
	service "github.com/okian/meeple/internal/app"
	"github.com/okian/meeple/internal/config"
	"github.com/okian/meeple/pkg/logger"
	"github.com/okian/meeple/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	snapshotMetricsInterval   = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Our own system metrics live on the custom registry.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// defaults -> .env -> yaml -> env
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWithWriter(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server exited", logger.Error(err))
		_ = logger.Sync()
		stop()
		os.Exit(1)
	}
}

// run wires the components from cfg and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	store, closeStore, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error(context.Background(), "failed to close snapshot store", logger.Error(err))
		}
	}()

	svc := newService(cfg, store)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startSnapshotMetricsUpdater(ctx, svc)

	srv := newHTTPServer(ctx, cfg, svc)
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newStore opens the configured snapshot backend. The returned func releases
// whatever the backend holds open.
func newStore(cfg *config.Config) (repository.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return repository.NewMemoryStore(), noop, nil
	case config.BackendBadger:
		s, err := repository.OpenBadgerStore(cfg.BadgerDir)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s, err := repository.NewFileStore(cfg.CachePath)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	}
}

func newCatalog(cfg *config.Config) *catalog.Client {
	return catalog.New(
		catalog.WithBaseURL(cfg.SourceBaseURL),
		catalog.WithUserAgent(cfg.UserAgent),
		catalog.WithTimeout(cfg.HTTPTimeout),
		catalog.WithPagePacer(pacing.NewInterval(cfg.PageInterval)),
		catalog.WithDetailPacer(pacing.NewInterval(cfg.DetailInterval)),
	)
}

func newService(cfg *config.Config, store repository.Store) *service.Service {
	return service.New(newCatalog(cfg), store,
		service.WithTTL(cfg.CacheTTL),
		service.WithPageCount(cfg.PageCount),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithWarmOnStart(cfg.WarmOnStart),
	)
}

func newHTTPServer(ctx context.Context, cfg *config.Config, svc *service.Service) *http.Server {
	mux := http.NewServeMux()

	apiServer := api.NewServer(svc, svc,
		api.WithCORSOrigins(cfg.CORSAllowedOrigins),
		api.WithRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow),
	)
	apiServer.Register(ctx, mux)
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Handler(mux),
		ReadTimeout:       readTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater refreshes process metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startSnapshotMetricsUpdater keeps the snapshot age gauge current between
// requests.
func startSnapshotMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(snapshotMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSnapshotMetrics(ctx, svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

func updateSnapshotMetrics(ctx context.Context, svc *service.Service) {
	age, ok, err := svc.SnapshotAge(ctx)
	if err != nil || !ok {
		return
	}
	metrics.UpdateSnapshotAge(age)
}
