// Package api provides the HTTP surface of the threatdesk portal.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"threatdesk/internal/alerts"
	"threatdesk/internal/observability"
)

// Server wires the alert store and telemetry into HTTP handlers.
type Server struct {
	store   alerts.Store
	tel     *observability.Telemetry
	logger  *zap.Logger
	version string
	now     func() time.Time

	requestTimeout time.Duration
	limiter        *RateLimiter
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the server clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithRequestTimeout sets the per-request timeout middleware.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.requestTimeout = d }
}

// WithRateLimiter enables request rate limiting.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) { s.limiter = rl }
}

// NewServer creates the HTTP server façade.
func NewServer(store alerts.Store, tel *observability.Telemetry, version string, opts ...Option) *Server {
	s := &Server{
		store:          store,
		tel:            tel,
		logger:         tel.Logger(),
		version:        version,
		now:            time.Now,
		requestTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout))
	if s.limiter != nil {
		r.Use(s.limiter.Middleware())
	}

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", s.tel.MetricsHandler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/export", s.handleExport)

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", s.handleListAlerts)
			r.Post("/", s.handleIngestAlert)
			r.Get("/{id}", s.handleGetAlert)
		})
	})

	return r
}

// Health and readiness handlers.

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": s.version,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		if m := s.tel.Metrics(); m != nil {
			m.HealthStatus.WithLabelValues("store").Set(0)
		}
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "alert store unreachable",
		})
		return
	}
	if m := s.tel.Metrics(); m != nil {
		m.HealthStatus.WithLabelValues("store").Set(1)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Response helpers.

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
