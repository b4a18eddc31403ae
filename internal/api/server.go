package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sentinelops/incident-core/internal/authz"
	"github.com/sentinelops/incident-core/internal/identity"
	"github.com/sentinelops/incident-core/internal/incident"
	"github.com/sentinelops/incident-core/internal/infrastructure/config"
	"github.com/sentinelops/incident-core/internal/infrastructure/influxdb"
	"github.com/sentinelops/incident-core/internal/infrastructure/logging"
	"github.com/sentinelops/incident-core/internal/infrastructure/mqtt"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config        config.APIConfig
	WS            config.WebSocketConfig
	Security      config.SecurityConfig
	Logger        *logging.Logger
	Provider      identity.Provider
	Incidents     incident.Repository
	Organizations identity.OrganizationRepository
	MQTT          *mqtt.Client     // optional: status publications to the broker
	Influx        *influxdb.Client // optional: analytics event sink
	ExternalHub   *Hub             // If set, the server uses this hub instead of creating its own
	Production    bool             // When true, internal error details are suppressed
	Version       string
}

// Server is the HTTP API server for the incident management core.
//
// It manages the HTTP listener, routes, middleware, the authorization
// gate, and the WebSocket hub. The server is created with New() and
// started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	provider    identity.Provider
	gate        *authz.Gate
	incidents   incident.Repository
	orgs        identity.OrganizationRepository
	mqtt        *mqtt.Client
	influx      *influxdb.Client
	production  bool
	version     string
	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()
	tickets     *ticketStore
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Provider == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if deps.Incidents == nil {
		return nil, fmt.Errorf("incident repository is required")
	}
	// MQTT and InfluxDB are optional; status publications and analytics
	// events are skipped when absent.

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		secCfg:     deps.Security,
		logger:     deps.Logger,
		provider:   deps.Provider,
		incidents:  deps.Incidents,
		orgs:       deps.Organizations,
		mqtt:       deps.MQTT,
		influx:     deps.Influx,
		production: deps.Production,
		version:    deps.Version,
		tickets:    newTicketStore(),
	}
	s.gate = authz.NewGate(deps.Provider, deps.Logger, s.deny)

	// Use externally-provided hub if available (needed when another
	// component also broadcasts through it).
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub and ticket cleanup,
// and launches the HTTP listener in a background goroutine. The server
// can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	// Create WebSocket hub (unless one was injected externally)
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	// Start periodic ticket cleanup to prevent memory leaks
	go s.tickets.cleanLoop(srvCtx)

	// Build router
	router := s.buildRouter()

	// Create HTTP server
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub, ticket cleanup)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
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
