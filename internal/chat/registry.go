package chat

import (
	"log/slog"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/andy6609/room-chat-server/internal/protocol"
)

// Registry is the reactor: a single goroutine that owns every session and
// room. I/O goroutines submit events; nothing outside Run may touch the maps.
// That single-writer ownership is what lets the registries go lockless.
type Registry struct {
	cfg    Config
	events chan Event
	stopCh chan struct{}
	doneCh chan struct{}
	logger *slog.Logger
	sink   Sink
	wg     sync.WaitGroup // writer goroutines

	// Owned by the Run goroutine.
	sessions map[net.Conn]*Session
	names    map[string]*Session
	rooms    *Rooms
}

func NewRegistry(cfg Config, logger *slog.Logger, sink Sink) *Registry {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &Registry{
		cfg:      cfg,
		events:   make(chan Event, cfg.EventBuffer),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   logger,
		sink:     sink,
		sessions: make(map[net.Conn]*Session),
		names:    make(map[string]*Session),
		rooms:    NewRooms(sink),
	}
}

// Submit hands an event to the reactor. It reports false once the loop has
// shut down, so producer goroutines never block on a dead channel.
func (r *Registry) Submit(ev Event) bool {
	select {
	case r.events <- ev:
		return true
	case <-r.doneCh:
		return false
	}
}

// Stop signals the Run loop to exit.
func (r *Registry) Stop() {
	close(r.stopCh)
}

// Wait blocks until the Run loop and all writer goroutines have finished.
func (r *Registry) Wait() {
	<-r.doneCh
	r.wg.Wait()
}

// Run is the event loop. It blocks on the next event or the sweep tick; every
// registry mutation, broadcast, and teardown happens inside this goroutine.
func (r *Registry) Run() {
	defer close(r.doneCh)

	sweep := time.NewTicker(r.cfg.SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case ev := <-r.events:
			start := time.Now()
			switch ev.Type {
			case EventAccept:
				r.handleAccept(ev)
			case EventInbound:
				r.handleInbound(ev)
			case EventClosed:
				r.handleClosed(ev)
			case EventQuery:
				r.handleQuery(ev)
			}
			r.reapStalled()
			EventProcessingDuration.WithLabelValues(ev.Type.String()).Observe(time.Since(start).Seconds())
		case <-sweep.C:
			r.sweepIdle()
			r.reapStalled()
		case <-r.stopCh:
			r.shutdown()
			return
		}
	}
}

func (r *Registry) handleAccept(ev Event) {
	s := NewSession(ev.Conn, r.cfg.OutboundQueue)
	r.sessions[ev.Conn] = s
	ConnectedClients.Set(float64(len(r.sessions)))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		WriteFrames(s.Conn, s.Out)
	}()

	r.logger.Info("client connected", "addr", s.RemoteAddr())
	r.sink.Log("client connected: " + s.RemoteAddr())
}

func (r *Registry) handleInbound(ev Event) {
	s, ok := r.sessions[ev.Conn]
	if !ok {
		// Already torn down; the reader hasn't noticed yet.
		return
	}

	msgs, err := s.Feed(ev.Data)
	for _, m := range msgs {
		r.dispatch(s, m)
	}
	if err != nil {
		r.logger.Warn("protocol violation", "addr", s.RemoteAddr(), "error", err)
		r.teardown(s, "protocol violation")
	}
}

func (r *Registry) handleClosed(ev Event) {
	s, ok := r.sessions[ev.Conn]
	if !ok {
		ev.Conn.Close()
		return
	}
	reason := "disconnected"
	if ev.Err != nil {
		reason = "read error"
	}
	r.teardown(s, reason)
}

func (r *Registry) handleQuery(ev Event) {
	if ev.Reply == nil {
		return
	}
	ev.Reply <- Snapshot{
		Clients: len(r.sessions),
		Rooms:   r.rooms.Names(),
	}
}

// dispatch routes one decoded message. The first frame on a fresh connection
// is always treated as the registration request.
func (r *Registry) dispatch(s *Session, m protocol.Message) {
	if !s.Registered() {
		r.handleRegister(s, m)
		return
	}

	MessagesTotal.WithLabelValues(m.Kind.String()).Inc()

	switch m.Kind {
	case protocol.Text:
		if err := r.rooms.SendText(s, m.Content); err != nil {
			s.Send(protocol.NewSystem("join a room before sending messages", ""))
		}
	case protocol.JoinRoom:
		r.handleJoin(s, m.Room)
	case protocol.CreateRoom:
		r.handleCreate(s, m.Room)
	case protocol.UserList:
		r.handleUserList(s)
	case protocol.RoomList:
		s.Send(protocol.NewMessage(protocol.RoomList, protocol.SystemSender,
			strings.Join(r.rooms.Names(), ","), s.CurrentRoom))
	case protocol.System:
		// Clients have no business sending system messages.
	}
}

// register validates the proposed username against the active sessions.
// Usernames are case-sensitive and released the moment a session ends.
func (r *Registry) register(s *Session, username string) error {
	if strings.TrimSpace(username) == "" {
		return ErrNameEmpty
	}
	if _, taken := r.names[username]; taken {
		return ErrNameTaken
	}
	s.Username = username
	r.names[username] = s
	return nil
}

func (r *Registry) handleRegister(s *Session, m protocol.Message) {
	username := strings.TrimSpace(m.Sender)
	switch err := r.register(s, username); err {
	case nil:
	case ErrNameTaken:
		// Recoverable: the connection stays open for another attempt.
		s.Send(protocol.NewSystem("username already taken, pick another", ""))
		return
	default:
		s.Send(protocol.NewSystem("username must not be empty", ""))
		return
	}

	r.logger.Info("user registered", "username", username, "addr", s.RemoteAddr())
	r.sink.Log(username + " registered")
	r.sink.Notify(ServerEvent{Kind: UserRegistered, Username: username})

	s.Send(protocol.NewSystem("welcome, "+username, ""))
}

func (r *Registry) handleJoin(s *Session, room string) {
	room = strings.TrimSpace(room)
	if room == "" {
		return
	}
	if err := r.rooms.Join(s, room); err != nil {
		s.Send(protocol.NewSystem("no such room: "+room, ""))
	}
}

func (r *Registry) handleCreate(s *Session, room string) {
	room = strings.TrimSpace(room)
	if room == "" {
		return
	}
	// Creating an existing room degrades to joining it.
	if err := r.rooms.Create(room); err != nil {
		s.Send(protocol.NewSystem("room "+room+" already exists, joining it", ""))
	}
	if err := r.rooms.Join(s, room); err != nil {
		s.Send(protocol.NewSystem("no such room: "+room, ""))
	}
}

func (r *Registry) handleUserList(s *Session) {
	var users []string
	room := s.CurrentRoom
	if room != "" {
		users = r.rooms.Members(room)
	} else {
		users = r.allUsernames()
	}
	s.Send(protocol.NewMessage(protocol.UserList, protocol.SystemSender,
		strings.Join(users, ","), room))
}

func (r *Registry) allUsernames() []string {
	users := make([]string, 0, len(r.names))
	for name := range r.names {
		users = append(users, name)
	}
	sort.Strings(users)
	return users
}

// teardown destroys a session: room leave first so the departure notice still
// names the user, then registry removal, then the close handed to the writer.
// Safe to call more than once for the same session.
func (r *Registry) teardown(s *Session, reason string) {
	if _, ok := r.sessions[s.Conn]; !ok {
		return
	}

	r.rooms.Leave(s)

	delete(r.sessions, s.Conn)
	if s.Username != "" {
		delete(r.names, s.Username)
		r.logger.Info("user disconnected", "username", s.Username, "reason", reason)
		r.sink.Log(s.Username + " disconnected (" + reason + ")")
		r.sink.Notify(ServerEvent{Kind: UserDisconnected, Username: s.Username})
	} else {
		r.logger.Info("client disconnected", "addr", s.RemoteAddr(), "reason", reason)
	}

	// Closing Out lets the writer drain queued frames and close the
	// connection; the deadline caps how long a wedged peer can hold it.
	s.closed = true
	s.Conn.SetWriteDeadline(time.Now().Add(time.Second))
	close(s.Out)

	ConnectedClients.Set(float64(len(r.sessions)))
}

// reapStalled disconnects sessions whose outbound queue overflowed while the
// last event was handled. Deleting during the range is fine in Go.
func (r *Registry) reapStalled() {
	for _, s := range r.sessions {
		if s.Stalled() {
			r.teardown(s, "slow consumer")
		}
	}
}

func (r *Registry) sweepIdle() {
	for _, s := range r.sessions {
		if s.IsInactive(r.cfg.IdleTimeout) {
			r.teardown(s, "idle timeout")
		}
	}
}

// shutdown notifies every session best-effort and tears them all down.
func (r *Registry) shutdown() {
	notice := protocol.Encode(protocol.NewSystem("server stopping", ""))
	for _, s := range r.sessions {
		s.SendFrame(notice)
	}
	for _, s := range r.sessions {
		r.teardown(s, "server stopping")
	}
}
