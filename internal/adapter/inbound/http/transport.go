package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/grip-gate/gripgate/internal/gripmw"
	"github.com/grip-gate/gripgate/internal/service"
)

// Server is the inbound HTTP adapter. It wires the middleware chain
// (request ID, metrics, GRIP mediation) around the application handler and
// owns the listener lifecycle.
type Server struct {
	gate          *service.Gate
	server        *http.Server
	addr          string
	logger        *slog.Logger
	appHandler    http.Handler
	healthChecker *HealthChecker
	metrics       *Metrics
}

// Option is a functional option for configuring Server.
type Option func(*Server)

// WithAddr sets the listen address. Default is "127.0.0.1:8080".
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithLogger sets the logger for the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAppHandler sets the application handler served behind the GRIP
// middleware. Defaults to the demo endpoints.
func WithAppHandler(h http.Handler) Option {
	return func(s *Server) {
		s.appHandler = h
	}
}

// WithHealthChecker sets the health checker for the /health endpoint.
func WithHealthChecker(hc *HealthChecker) Option {
	return func(s *Server) {
		s.healthChecker = hc
	}
}

// NewServer creates the HTTP server around the given gate.
func NewServer(gate *service.Gate, opts ...Option) *Server {
	s := &Server{
		gate:   gate,
		addr:   "127.0.0.1:8080",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.appHandler == nil {
		s.appHandler = NewAppHandlers(gate).Mux()
	}
	if s.healthChecker == nil {
		s.healthChecker = NewHealthChecker(gate, "")
	}
	return s
}

// Metrics returns the server's metrics, available after Start.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start begins accepting HTTP connections. It blocks until the context is
// cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metrics = NewMetrics(reg)
	s.gate.SetPublishCounter(s.metrics.PublishesTotal)

	// Middleware chain (outermost first):
	// 1. MetricsMiddleware - record duration and status for the full chain
	// 2. RequestIDMiddleware - request ID and enriched logger
	// 3. gripmw.Middleware - trust evaluation, session load, finalization
	// 4. Application handler
	handler := gripmw.Middleware(s.gate,
		gripmw.WithLogger(s.logger),
		gripmw.WithCollectors(s.metrics.HeldResponses, s.metrics.WSEventsIn, s.metrics.WSEventsOut),
	)(s.appHandler)
	handler = RequestIDMiddleware(s.logger)(handler)
	handler = MetricsMiddleware(s.metrics)(handler)

	mux := http.NewServeMux()
	mux.Handle("/health", s.healthChecker.Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		Registry: reg,
	}))
	mux.Handle("/", handler)

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down HTTP server")
		return s.shutdown()
	case err := <-errCh:
		return err
	}
}

// shutdown performs graceful shutdown of the HTTP server.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("error during server shutdown", "error", err)
		return err
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	return s.shutdown()
}
