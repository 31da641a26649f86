package chat

import "log/slog"

// ServerEventKind enumerates the structured events emitted to the sink.
type ServerEventKind int

const (
	UserRegistered ServerEventKind = iota
	UserDisconnected
	RoomCreated
	UserJoinedRoom
	UserLeftRoom
	MessageSent
)

func (k ServerEventKind) String() string {
	switch k {
	case UserRegistered:
		return "user_registered"
	case UserDisconnected:
		return "user_disconnected"
	case RoomCreated:
		return "room_created"
	case UserJoinedRoom:
		return "user_joined_room"
	case UserLeftRoom:
		return "user_left_room"
	case MessageSent:
		return "message_sent"
	}
	return "unknown"
}

// ServerEvent carries the identifiers a front-end needs to render a live log
// without inspecting server internals.
type ServerEvent struct {
	Kind     ServerEventKind
	Username string
	Room     string
	Content  string
}

// Sink receives free-text log lines and structured events from the reactor
// goroutine. Implementations must not block; hand expensive work off to
// another goroutine or the loop stalls.
type Sink interface {
	Log(line string)
	Notify(ev ServerEvent)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Log(string)         {}
func (NopSink) Notify(ServerEvent) {}

// SlogSink forwards sink traffic to a structured logger.
type SlogSink struct {
	Logger *slog.Logger
}

func (s SlogSink) Log(line string) {
	s.Logger.Info(line)
}

func (s SlogSink) Notify(ev ServerEvent) {
	attrs := make([]any, 0, 6)
	if ev.Username != "" {
		attrs = append(attrs, "username", ev.Username)
	}
	if ev.Room != "" {
		attrs = append(attrs, "room", ev.Room)
	}
	if ev.Content != "" {
		attrs = append(attrs, "content", ev.Content)
	}
	s.Logger.Info(ev.Kind.String(), attrs...)
}
