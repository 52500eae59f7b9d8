// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/meeple/internal/domain/model"
	"github.com/okian/meeple/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Recommend ranks the cached candidates against the favorites.
	Recommend(ctx context.Context, favorites []string) ([]model.Recommendation, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	recommendHandler *RecommendHandler

	corsOrigins  []string
	rateRequests int
	rateWindow   time.Duration
	logger       logger.Logger
	maxBodyBytes int64
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithCORSOrigins sets the origins allowed by CORS. Empty keeps "*".
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// WithRateLimit limits /recommend to requests per window per client IP.
// A non-positive requests value disables the limit.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(s *Server) {
		s.rateRequests = requests
		if window > 0 {
			s.rateWindow = window
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		corsOrigins:  []string{"*"},
		rateRequests: 60,
		rateWindow:   time.Minute,
		maxBodyBytes: 1 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.recommendHandler = NewRecommendHandler(deps, s.logger, s.maxBodyBytes)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	recommend := s.rateLimit(http.HandlerFunc(s.recommendHandler.HandleRecommend))
	mux.HandleFunc("/recommend", MetricsMiddleware(recommend.ServeHTTP, "recommend"))
}

// Handler wraps the mux with the middleware shared by every route.
func (s *Server) Handler(mux http.Handler) http.Handler {
	return RequestID(s.cors(mux))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
