package echo

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"

	"golang.org/x/net/netutil"
)

const DefaultAddr = "127.0.0.1:4000"

type Config struct {
	// Addr is the host:port to bind. Immutable after Start.
	Addr string
	// MaxConns caps concurrently accepted connections. 0 means unlimited.
	MaxConns int
}

// Server accepts TCP connections and echoes every byte back on each one.
// Each accepted connection is owned by exactly one handler goroutine;
// connections share no state.
type Server struct {
	config   Config
	metrics  *Metrics
	listener net.Listener
	wg       sync.WaitGroup
}

func NewServer(config Config, metrics *Metrics) *Server {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	return &Server{config: config, metrics: metrics}
}

// Start binds the configured address and launches the accept loop. A bind
// failure is returned to the caller and is fatal; after a successful bind
// Start returns immediately and the server runs until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.config.Addr, err)
	}
	if s.config.MaxConns > 0 {
		listener = netutil.LimitListener(listener, s.config.MaxConns)
	}
	s.listener = listener

	log.Printf("Echo server listening on %s", listener.Addr())

	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			log.Printf("Error closing listener: %v", err)
		}
	}()

	go s.acceptLoop(ctx)
	return nil
}

// Addr reports the bound address. Useful when Config.Addr used port 0.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return // shutdown in progress
			}
			s.metrics.total_connection_failures.WithLabelValues("accept_error").Inc()
			log.Printf("Failed to accept connection: %v", err)
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// Stop waits for all in-flight handlers to finish. It does not cancel
// them; a handler runs until its peer disconnects or an I/O error occurs.
// Cancel the Start context first so the accept loop stops feeding new
// connections.
func (s *Server) Stop() {
	s.wg.Wait()
}
