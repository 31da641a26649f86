package chat

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
)

// Server is the lifecycle facade around the reactor: bind, accept, shut down.
// Front-ends drive it through Start/Stop, observe it through the Sink, and
// query it through ClientCount and RoomNames; they never touch sessions or
// rooms directly.
type Server struct {
	cfg    Config
	logger *slog.Logger
	sink   Sink

	mu       sync.Mutex
	reg      *Registry
	listener net.Listener
	running  bool
}

func NewServer(cfg Config, logger *slog.Logger, sink Sink) *Server {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		sink:   sink,
		reg:    NewRegistry(cfg, logger, sink),
	}
}

// Start binds the listen address and launches the reactor. A bind or listen
// failure is returned synchronously and leaves nothing running.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	s.running = true

	go s.reg.Run()
	go s.acceptLoop(ln, s.reg)

	s.logger.Info("server started", "addr", ln.Addr().String())
	s.sink.Log("server started on " + ln.Addr().String())
	return nil
}

// Stop shuts the server down: connected sessions get a best-effort system
// notice, then every handle is closed. Idempotent, and the server can be
// started again afterwards.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	ln := s.listener
	reg := s.reg
	s.mu.Unlock()

	s.logger.Info("shutting down")

	ln.Close()
	reg.Stop()
	reg.Wait()

	s.mu.Lock()
	s.reg = NewRegistry(s.cfg, s.logger, s.sink)
	s.mu.Unlock()

	s.logger.Info("shutdown complete")
	s.sink.Log("server stopped")
}

// Addr returns the bound listen address, or "" when not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ClientCount reports the number of live sessions.
func (s *Server) ClientCount() int {
	return s.snapshot().Clients
}

// RoomNames reports the live room name set, sorted.
func (s *Server) RoomNames() []string {
	return s.snapshot().Rooms
}

func (s *Server) snapshot() Snapshot {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return Snapshot{}
	}
	reg := s.reg
	s.mu.Unlock()

	reply := make(chan Snapshot, 1)
	if !reg.Submit(Event{Type: EventQuery, Reply: reply}) {
		return Snapshot{}
	}
	select {
	case snap := <-reply:
		return snap
	case <-reg.doneCh:
		// Loop stopped before the query was served.
		return Snapshot{}
	}
}

func (s *Server) acceptLoop(ln net.Listener, reg *Registry) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Listener closed during Stop.
			return
		}
		if !reg.Submit(Event{Type: EventAccept, Conn: conn}) {
			conn.Close()
			return
		}
		go s.readLoop(conn, reg)
	}
}

// readLoop performs the blocking reads for one connection and forwards
// whatever arrives, at whatever fragmentation, to the reactor. Frame
// reassembly happens inside the loop, not here.
func (s *Server) readLoop(conn net.Conn, reg *Registry) {
	buf := make([]byte, s.cfg.ReadBuffer)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if !reg.Submit(Event{Type: EventInbound, Conn: conn, Data: data}) {
				conn.Close()
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				err = nil // peer hung up cleanly
			}
			reg.Submit(Event{Type: EventClosed, Conn: conn, Err: err})
			return
		}
	}
}
