package chat

import (
	"sort"
	"strings"

	"github.com/andy6609/room-chat-server/internal/protocol"
)

// Rooms maps room names to their member sessions. Rooms are ephemeral: they
// exist from creation until the last member leaves. Like every registry here,
// the type is owned by the reactor goroutine and needs no locking.
type Rooms struct {
	members map[string]map[*Session]struct{}
	sink    Sink
}

func NewRooms(sink Sink) *Rooms {
	if sink == nil {
		sink = NopSink{}
	}
	return &Rooms{
		members: make(map[string]map[*Session]struct{}),
		sink:    sink,
	}
}

// Create adds an empty room. Room names are case-sensitive.
func (r *Rooms) Create(name string) error {
	if _, ok := r.members[name]; ok {
		return ErrRoomExists
	}
	r.members[name] = make(map[*Session]struct{})
	OpenRooms.Set(float64(len(r.members)))
	r.sink.Log("room created: " + name)
	r.sink.Notify(ServerEvent{Kind: RoomCreated, Room: name})
	return nil
}

// Join moves s into the named room, leaving its current room first. The
// joining session gets a JoinRoom confirmation; the other members get a
// system notice. The joiner is excluded from that broadcast so it is never
// notified about itself.
func (r *Rooms) Join(s *Session, name string) error {
	if _, ok := r.members[name]; !ok {
		return ErrRoomNotFound
	}
	if s.CurrentRoom == name {
		s.Send(protocol.NewMessage(protocol.JoinRoom, s.Username, "", name))
		return nil
	}
	if s.CurrentRoom != "" {
		r.Leave(s)
	}

	r.members[name][s] = struct{}{}
	s.CurrentRoom = name

	s.Send(protocol.NewMessage(protocol.JoinRoom, s.Username, "", name))
	r.Broadcast(name, protocol.NewSystem(s.Username+" joined the room", name), s)
	r.sink.Log(s.Username + " joined room " + name)
	r.sink.Notify(ServerEvent{Kind: UserJoinedRoom, Username: s.Username, Room: name})
	return nil
}

// Leave removes s from its current room, if any. An emptied room is deleted
// on the spot; the remaining members get a system notice.
func (r *Rooms) Leave(s *Session) {
	name := s.CurrentRoom
	if name == "" {
		return
	}
	s.CurrentRoom = ""

	set, ok := r.members[name]
	if !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(r.members, name)
		r.sink.Log("room deleted: " + name)
	}
	OpenRooms.Set(float64(len(r.members)))

	r.Broadcast(name, protocol.NewSystem(s.Username+" left the room", name), nil)
	r.sink.Log(s.Username + " left room " + name)
	r.sink.Notify(ServerEvent{Kind: UserLeftRoom, Username: s.Username, Room: name})
}

// SendText broadcasts content from s to its current room, excluding s itself;
// the sender's client is responsible for its own local echo. Blank content is
// dropped silently.
func (r *Rooms) SendText(s *Session, content string) error {
	if s.CurrentRoom == "" {
		return ErrNotInRoom
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}
	room := s.CurrentRoom
	r.Broadcast(room, protocol.NewText(s.Username, content, room), s)
	r.sink.Log("[" + room + "] " + s.Username + ": " + content)
	r.sink.Notify(ServerEvent{Kind: MessageSent, Username: s.Username, Room: room, Content: content})
	return nil
}

// Broadcast sends m to every member of the named room except exclude, which
// may be nil. Members that cannot accept the frame are skipped; their cleanup
// happens through disconnect handling, not here.
func (r *Rooms) Broadcast(name string, m protocol.Message, exclude *Session) {
	set, ok := r.members[name]
	if !ok {
		return
	}
	frame := protocol.Encode(m)
	for member := range set {
		if member == exclude {
			continue
		}
		member.SendFrame(frame)
	}
}

// Names returns the sorted set of live room names.
func (r *Rooms) Names() []string {
	names := make([]string, 0, len(r.members))
	for name := range r.members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Members returns the sorted usernames currently in the named room.
func (r *Rooms) Members(name string) []string {
	set, ok := r.members[name]
	if !ok {
		return nil
	}
	users := make([]string, 0, len(set))
	for member := range set {
		users = append(users, member.Username)
	}
	sort.Strings(users)
	return users
}
