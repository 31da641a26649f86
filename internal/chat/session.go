package chat

import (
	"net"
	"time"

	"github.com/andy6609/room-chat-server/internal/protocol"
)

// Session is the server-side state for one connected client. It belongs to
// the reactor goroutine for its whole lifetime; the only part shared with
// another goroutine is the outbound channel drained by the writer.
type Session struct {
	Conn        net.Conn
	Username    string // empty until registration succeeds
	CurrentRoom string // empty means registered but roomless

	// Out carries encoded frames to the writer goroutine. The queue is
	// bounded: a session that fills it is treated as a slow consumer and
	// disconnected rather than growing without limit.
	Out chan []byte

	assembler    protocol.Assembler
	lastActivity time.Time
	stalled      bool
	closed       bool
}

func NewSession(conn net.Conn, queue int) *Session {
	if queue <= 0 {
		queue = 64
	}
	return &Session{
		Conn:         conn,
		Out:          make(chan []byte, queue),
		lastActivity: time.Now(),
	}
}

// Registered reports whether the username handshake has completed.
func (s *Session) Registered() bool { return s.Username != "" }

// Feed appends freshly read bytes to the inbound assembly buffer and returns
// the messages they complete. A non-nil error is a protocol violation and the
// connection must be torn down.
func (s *Session) Feed(p []byte) ([]protocol.Message, error) {
	s.lastActivity = time.Now()
	return s.assembler.Feed(p)
}

// Send encodes m and queues the frame for the writer.
func (s *Session) Send(m protocol.Message) bool {
	return s.SendFrame(protocol.Encode(m))
}

// SendFrame queues an already encoded frame. When the queue is full the frame
// is dropped and the session is marked stalled; the reactor disconnects
// stalled sessions at the end of the current tick.
func (s *Session) SendFrame(frame []byte) bool {
	if s.closed || s.stalled {
		return false
	}
	select {
	case s.Out <- frame:
		return true
	default:
		s.stalled = true
		return false
	}
}

// Stalled reports whether an outbound enqueue has overflowed the queue.
func (s *Session) Stalled() bool { return s.stalled }

// IsInactive reports whether the session has been quiet for longer than
// timeout. Activity means successful reads, not writes.
func (s *Session) IsInactive(timeout time.Duration) bool {
	return time.Since(s.lastActivity) > timeout
}

func (s *Session) RemoteAddr() string {
	if addr := s.Conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}
