package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/ace-core/internal/ace"
	"github.com/nerrad567/ace-core/internal/history"
	"github.com/nerrad567/ace-core/internal/infrastructure/config"
	"github.com/nerrad567/ace-core/internal/infrastructure/logging"
	"github.com/nerrad567/ace-core/internal/thermal"
	"github.com/nerrad567/ace-core/internal/variables"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// ScriptSender forwards free-form G-code from the command endpoint.
type ScriptSender interface {
	Send(ctx context.Context, script string) error
}

// ThermalStatus reports the temperature guard's view.
type ThermalStatus interface {
	Status() thermal.Status
}

// ConnectionStatus reports whether a transport is up.
type ConnectionStatus interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Security    config.SecurityConfig
	Logger      *logging.Logger
	Cache       *ace.Cache
	Dispatcher  *ace.Dispatcher
	Persistence *ace.Persistence
	Sender      ScriptSender
	History     *history.Repository // optional
	Variables   *variables.Store    // optional
	Recorder    *history.Recorder   // optional, for metrics
	Thermal     ThermalStatus       // optional
	MQTT        ConnectionStatus    // optional, for metrics
	DB          *sql.DB             // optional, for metrics
	Version     string
}

// Server is the HTTP API server for acecore.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	cache       *ace.Cache
	dispatcher  *ace.Dispatcher
	persistence *ace.Persistence
	sender      ScriptSender
	history     *history.Repository
	variables   *variables.Store
	recorder    *history.Recorder
	thermal     ThermalStatus
	mqtt        ConnectionStatus
	db          *sql.DB
	version     string
	startTime   time.Time
	server      *http.Server
	hub         *Hub
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called. The WebSocket hub is
// created here and subscribed to the cache so no change is missed between
// New and Start.
//
// Parameters:
//   - deps: Required dependencies (config, logger, cache, dispatcher, persistence)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Cache == nil {
		return nil, fmt.Errorf("state cache is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Persistence == nil {
		return nil, fmt.Errorf("persistence is required")
	}

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		secCfg:      deps.Security,
		logger:      deps.Logger,
		cache:       deps.Cache,
		dispatcher:  deps.Dispatcher,
		persistence: deps.Persistence,
		sender:      deps.Sender,
		history:     deps.History,
		variables:   deps.Variables,
		recorder:    deps.Recorder,
		thermal:     deps.Thermal,
		mqtt:        deps.MQTT,
		db:          deps.DB,
		version:     deps.Version,
		startTime:   time.Now(),
		hub:         NewHub(deps.WS, deps.Logger),
	}
	s.cache.Subscribe(s.broadcastState)

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
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
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

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

// Handler returns the router without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}
