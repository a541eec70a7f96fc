// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	handlerapi "github.com/newthinker/replay/internal/api/handler/api"
	"github.com/newthinker/replay/internal/api/middleware"
	"github.com/newthinker/replay/internal/backtest"
	"github.com/newthinker/replay/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for replay
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	APIKey       string
	MaxBodyBytes int64
	MetricsPath  string // empty disables the metrics endpoint
}

// Dependencies holds the components the routes serve
type Dependencies struct {
	Backtester *backtest.Backtester
	Results    handlerapi.ResultStore
	Metrics    *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Backtester == nil {
		return nil, fmt.Errorf("backtester required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()

	s := &Server{
		logger: logger,
		mux:    mux,
	}
	s.setupRoutes(cfg, deps)

	var handler http.Handler = mux
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}
	handler = metrics.LoggingMiddleware(logger)(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	backtests := handlerapi.NewBacktestHandler(deps.Backtester, deps.Results, cfg.MaxBodyBytes, s.logger)
	auth := middleware.APIKeyAuth(cfg.APIKey)

	s.mux.Handle("POST /api/v1/backtests", auth(http.HandlerFunc(backtests.Create)))
	s.mux.Handle("GET /api/v1/backtests", auth(http.HandlerFunc(backtests.List)))
	s.mux.Handle("GET /api/v1/backtests/{id}", auth(http.HandlerFunc(backtests.Get)))
	s.mux.Handle("DELETE /api/v1/backtests/{id}", auth(http.HandlerFunc(backtests.Delete)))
	s.mux.Handle("GET /api/v1/backtests/{id}/trades.csv", auth(http.HandlerFunc(backtests.TradesCSV)))

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if deps.Metrics != nil && cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the root handler including middleware
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
