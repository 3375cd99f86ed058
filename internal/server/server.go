package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/sanya94592-stack/ecu-editor/internal/logging"
	"github.com/sanya94592-stack/ecu-editor/internal/profile"
	"github.com/sanya94592-stack/ecu-editor/internal/session"
)

// Config holds the server configuration
type Config struct {
	Host      string
	Port      int
	CertPath  string // TLS certificate (optional)
	KeyPath   string // TLS private key (optional)
	Advertise bool   // Register the API over mDNS
	Instance  string // mDNS instance name (default: hostname based)

	// Registry resolves profile names. Required.
	Registry *profile.Registry
}

// Addr returns host:port
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))
}

// Server exposes one editing session over HTTP. All session access goes
// through mu since Session itself does no locking.
type Server struct {
	config    *Config
	registry  *profile.Registry
	tlsConfig *tls.Config

	mu      sync.Mutex
	session *session.Session

	hub        *Hub
	httpServer *http.Server
	listener   net.Listener
	mdns       *zeroconf.Server
}

// New creates a new Server instance
func New(config *Config) (*Server, error) {
	if config.Registry == nil {
		return nil, errors.New("server: profile registry is required")
	}

	var tlsConfig *tls.Config
	if config.CertPath != "" || config.KeyPath != "" {
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	s := &Server{
		config:    config,
		registry:  config.Registry,
		tlsConfig: tlsConfig,
		session:   session.New(),
		hub:       NewHub(),
	}

	// Observers run while mu is held by the handler that changed the session
	s.session.Subscribe(s.hub.Broadcast)

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         tlsConfig,
	}
	return s, nil
}

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.Addr()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}
	s.listener = listener

	logging.Info("Starting ECU editor API server",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("tls", s.tlsConfig != nil),
		zap.Int("profiles", s.registry.Count()),
	)

	if s.config.Advertise {
		port := listener.Addr().(*net.TCPAddr).Port
		s.mdns, err = Advertise(s.config.Instance, port, s.tlsConfig != nil)
		if err != nil {
			// The API is still usable without discovery
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops advertising, closes event streams and waits for in-flight
// requests.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	if s.mdns != nil {
		s.mdns.Shutdown()
		s.mdns = nil
	}

	s.hub.Close()

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
		_ = s.httpServer.Close()
	} else {
		logging.Info("All connections closed gracefully")
	}

	logging.Sync()
	return err
}

// Clients returns the number of connected event stream clients
func (s *Server) Clients() int {
	return s.hub.Count()
}
