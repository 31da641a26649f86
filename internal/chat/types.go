package chat

import "net"

type EventType int

const (
	EventAccept EventType = iota
	EventInbound
	EventClosed
	EventQuery
)

func (t EventType) String() string {
	switch t {
	case EventAccept:
		return "accept"
	case EventInbound:
		return "inbound"
	case EventClosed:
		return "closed"
	case EventQuery:
		return "query"
	}
	return "unknown"
}

// Event is one unit of work submitted to the reactor. I/O goroutines produce
// them; only the Run goroutine consumes them.
type Event struct {
	Type  EventType
	Conn  net.Conn
	Data  []byte        // EventInbound: bytes just read from Conn
	Err   error         // EventClosed: the read error, nil on clean EOF
	Reply chan Snapshot // EventQuery: receives the registry snapshot
}

// Snapshot is a read-only view of the registries for external queries.
type Snapshot struct {
	Clients int
	Rooms   []string
}

var (
	ErrNameEmpty      = errorString("name_empty")
	ErrNameTaken      = errorString("name_taken")
	ErrRoomExists     = errorString("room_exists")
	ErrRoomNotFound   = errorString("room_not_found")
	ErrNotInRoom      = errorString("not_in_room")
	ErrAlreadyRunning = errorString("already_running")
)

type errorString string

func (e errorString) Error() string { return string(e) }
