// Package api provides the HTTP admin API for Cabinet Core.
//
// It exposes shelf status, slot-level controls (raw weight, conversion
// factor, calibration, tare), the session cart, and operational metrics to
// maintenance tooling. There is no auth layer: user identification happens
// outside the cabinet, and the API binds to the cabinet's management network.
//
// The server follows the same lifecycle pattern as the other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bitsnbytes/cabinet-core/internal/cart"
	"github.com/bitsnbytes/cabinet-core/internal/infrastructure/config"
	"github.com/bitsnbytes/cabinet-core/internal/infrastructure/database"
	"github.com/bitsnbytes/cabinet-core/internal/infrastructure/logging"
	"github.com/bitsnbytes/cabinet-core/internal/infrastructure/mqtt"
	"github.com/bitsnbytes/cabinet-core/internal/shelf"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config config.APIConfig
	Logger *logging.Logger

	// Registry is required; everything else degrades gracefully when absent.
	Registry *shelf.Registry

	Cart  *cart.Cart
	Store *shelf.Store
	DB    *database.DB
	MQTT  *mqtt.Client

	// Gatherer serves /metrics in Prometheus exposition format when set.
	Gatherer prometheus.Gatherer

	// StaleAfter is the threshold used when flagging shelves in status
	// responses. Matches the watchdog's threshold.
	StaleAfter time.Duration

	Version string
}

// Server is the HTTP admin API server for Cabinet Core.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	logger     *logging.Logger
	registry   *shelf.Registry
	cart       *cart.Cart
	store      *shelf.Store
	db         *database.DB
	mqtt       *mqtt.Client
	gatherer   prometheus.Gatherer
	staleAfter time.Duration
	version    string
	startTime  time.Time
	server     *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, registry)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Registry == nil {
		return nil, fmt.Errorf("shelf registry is required")
	}
	log := deps.Logger
	if log == nil {
		log = logging.Default()
	}

	return &Server{
		cfg:        deps.Config,
		logger:     log.With("component", "api"),
		registry:   deps.Registry,
		cart:       deps.Cart,
		store:      deps.Store,
		db:         deps.DB,
		mqtt:       deps.MQTT,
		gatherer:   deps.Gatherer,
		staleAfter: deps.StaleAfter,
		version:    deps.Version,
		startTime:  time.Now(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// The listener runs in a background goroutine; the server is stopped with
// Close().
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
