// Package httpserver provides the HTTP REST API for the paper discovery service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-discovery-service/internal/discovery"
	"github.com/helixir/paper-discovery-service/internal/observability"
	"github.com/helixir/paper-discovery-service/internal/quality"
)

// Searcher is the discovery surface the HTTP server depends on.
// *discovery.Orchestrator satisfies it.
type Searcher interface {
	Search(ctx context.Context, req discovery.Request) (*discovery.Result, error)
	Agents() []discovery.AgentInfo
	Scorer() *quality.Scorer
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	searcher   Searcher
	validate   *validator.Validate
	metrics    *observability.Metrics
	gatherer   prometheus.Gatherer
	config     Config
	logger     zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// MetricsPath mounts the Prometheus handler when set and metrics are enabled.
	MetricsPath string

	// Gatherer backs the metrics endpoint. Defaults to the default registry.
	Gatherer prometheus.Gatherer
}

// NewServer creates a new HTTP server. A nil metrics disables request
// metrics and the metrics endpoint.
func NewServer(cfg Config, searcher Searcher, logger zerolog.Logger, metrics *observability.Metrics) *Server {
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		searcher: searcher,
		validate: newValidator(),
		metrics:  metrics,
		gatherer: cfg.Gatherer,
		config:   cfg,
		logger:   logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(requestLogMiddleware(s.logger, s.metrics))

	if s.metrics != nil && s.config.MetricsPath != "" {
		r.Handle(s.config.MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(jsonContentTypeMiddleware)

		r.Get("/healthz", s.healthHandler)

		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/search", s.searchPapers)
			r.Get("/search", s.searchPapersQuery)
			r.Post("/rank", s.rankPapers)
			r.Get("/sources", s.listSources)
		})
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status together with the number of
// sources that can currently be searched.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	enabled := 0
	for _, a := range s.searcher.Agents() {
		if a.Enabled {
			enabled++
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", EnabledSources: enabled})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
