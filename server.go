package clawgateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/openclaw/clawgateway/instrumentation"
	"github.com/openclaw/clawgateway/security"
)

// shutdownGrace is how long in-flight connections get to finish before the
// listener is torn down.
const shutdownGrace = 5 * time.Second

// ServerConfig carries the Server's construction options.
type ServerConfig struct {
	// ConfigPath is the gateway config file. Required.
	ConfigPath string

	// PortOverride, when nonzero, overrides the configured port.
	PortOverride int

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Instrumentation is optional; nil disables metrics.
	Instrumentation *instrumentation.Instrumentation
}

// Server ties the config manager, router and HTTP listener together.
type Server struct {
	manager *ConfigManager
	router  *Router
	auditor *security.Auditor
	logger  *slog.Logger
	port    int

	httpServer *http.Server
}

// NewServer loads and validates the config, builds the provider registry and
// prepares the listener. Config errors here are fatal.
func NewServer(sc ServerConfig) (*Server, error) {
	logger := sc.Logger
	if logger == nil {
		logger = slog.Default()
	}

	manager, err := NewConfigManager(sc.ConfigPath, logger)
	if err != nil {
		return nil, err
	}
	cfg := manager.Current()

	var auditor *security.Auditor
	if cfg.AuditLog != "" {
		auditor, err = security.NewAuditor(logger, cfg.AuditLog)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
	}

	var metrics *instrumentation.Metrics
	if sc.Instrumentation != nil {
		metrics = sc.Instrumentation.Metrics()
	}

	router, err := NewRouter(RouterConfig{
		Manager: manager,
		Auditor: auditor,
		Metrics: metrics,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	manager.OnReload = func(newCfg *Config) {
		if err := router.RebuildProviders(newCfg); err != nil {
			logger.Error("Provider rebuild failed after reload, keeping previous registry", "error", err)
		}
	}

	port := cfg.Port
	if sc.PortOverride != 0 {
		port = sc.PortOverride
	}

	s := &Server{
		manager: manager,
		router:  router,
		auditor: auditor,
		logger:  logger,
		port:    port,
	}
	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Router exposes the dispatcher, mainly for tests.
func (s *Server) Router() *Router { return s.router }

// Start binds the listener, starts config watching and serves until ctx is
// cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to bind port %d: %w", s.port, err)
	}

	if err := s.manager.Watch(); err != nil {
		s.logger.Warn("Config hot reload unavailable", "error", err)
	}

	cfg := s.manager.Current()
	s.logger.Info("ClawGateway listening",
		"port", s.port,
		"mode", cfg.Mode,
		"providers", s.router.providerNames(),
		"callbackUrl", cfg.CallbackURL,
		"devMode", cfg.DevMode)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		return err
	}
}

// Shutdown drains in-flight connections for shutdownGrace, then forces the
// listener closed and releases the router's background resources.
func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down", "grace", shutdownGrace)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		s.httpServer.Close()
	}

	s.manager.Close()
	s.router.limiter.Stop()
	s.router.adminLimiter.Stop()
	if s.auditor != nil {
		s.auditor.Close()
	}
	return err
}
