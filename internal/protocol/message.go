// Package protocol defines the chat wire format: a typed Message carried in a
// length-prefixed binary frame, plus the codec and the stream reassembler.
// Everything here is pure over byte slices; no I/O happens in this package.
package protocol

import "time"

// Kind identifies the payload type carried by a Message. The ordinal values
// are part of the wire format and must not be reordered.
type Kind uint32

const (
	Text Kind = iota
	JoinRoom
	CreateRoom
	System
	UserList
	RoomList

	kindCount
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case JoinRoom:
		return "join_room"
	case CreateRoom:
		return "create_room"
	case System:
		return "system"
	case UserList:
		return "user_list"
	case RoomList:
		return "room_list"
	}
	return "unknown"
}

const (
	// DefaultRoom is assigned when a message names no room.
	DefaultRoom = "general"
	// DefaultSender is assigned when a message names no sender.
	DefaultSender = "unknown"
	// SystemSender is the display name used for server-originated messages.
	SystemSender = "server"
)

// Message is the single payload type exchanged between client and server.
// It is immutable once constructed; the timestamp is informational only and
// carries no ordering guarantee across machines.
type Message struct {
	Kind      Kind
	Sender    string
	Content   string
	Room      string
	Timestamp time.Time
}

// NewMessage builds a Message, filling in the sender and room defaults and
// stamping the creation time.
func NewMessage(kind Kind, sender, content, room string) Message {
	if sender == "" {
		sender = DefaultSender
	}
	if room == "" {
		room = DefaultRoom
	}
	return Message{
		Kind:      kind,
		Sender:    sender,
		Content:   content,
		Room:      room,
		Timestamp: time.Now(),
	}
}

// NewText builds a chat text message.
func NewText(sender, content, room string) Message {
	return NewMessage(Text, sender, content, room)
}

// NewSystem builds a server notice addressed to room.
func NewSystem(content, room string) Message {
	return NewMessage(System, SystemSender, content, room)
}
