package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/uhubctl-mqtt/internal/infrastructure/logging"
	"github.com/nerrad567/uhubctl-mqtt/internal/uhubctl"
)

// Server timeouts.
const (
	// gracefulShutdownTimeout is the maximum time to wait for in-flight
	// requests to complete during shutdown.
	gracefulShutdownTimeout = 5 * time.Second

	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
)

// BridgeStatus is the read side of the bridge. *usbhub.Bridge satisfies it.
type BridgeStatus interface {
	// Hubs returns copies of every hub in the snapshot.
	Hubs() []*uhubctl.Hub

	// Hub returns a copy of one hub, or nil if the location is unknown.
	Hub(location string) *uhubctl.Hub

	// Connected reports whether the bridge has a broker session.
	Connected() bool
}

// Deps holds the dependencies required by the status server.
type Deps struct {
	// Listen is the TCP address to bind (e.g. ":9090").
	Listen string

	Logger *logging.Logger
	Bridge BridgeStatus

	// Gatherer is the metrics source. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Clock stamps hub documents. Defaults to time.Now.
	Clock func() time.Time

	Version string
}

// Server is the HTTP status server.
//
// It is created with New(), started with Start() and stopped with Close().
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Server struct {
	listen    string
	logger    *logging.Logger
	bridge    BridgeStatus
	gatherer  prometheus.Gatherer
	now       func() time.Time
	version   string
	startTime time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a status server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.Bridge == nil {
		return nil, errors.New("bridge is required")
	}
	if deps.Listen == "" {
		return nil, errors.New("listen address is required")
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Server{
		listen:   deps.Listen,
		logger:   deps.Logger,
		bridge:   deps.Bridge,
		gatherer: gatherer,
		now:      clock,
		version:  deps.Version,
	}, nil
}

// Start binds the listen address and serves in a background goroutine.
// Binding happens before Start returns, so an unusable address is reported
// here rather than logged later.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("status server already started")
	}

	listener, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("binding status listener: %w", err)
	}

	s.startTime = s.now()
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	server := s.server
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("status server error", "error", serveErr)
		}
	}()

	s.logger.Info("status server started", "address", listener.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the status server.
//
// It waits up to 5 seconds for in-flight requests to complete.
func (s *Server) Close() error {
	s.mu.Lock()
	server := s.server
	s.mu.Unlock()

	if server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("status server shutting down")
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down status server: %w", err)
	}
	return nil
}
