package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Wire format, big-endian throughout:
//
//	frame  := u32(length) body
//	body   := u32(kind) str(sender) str(content) str(room) i64(timestampMillis)
//	str(s) := u32(byteLength) utf8Bytes
//
// The outer length counts the body bytes only.
const (
	// LengthSize is the width of the outer length prefix.
	LengthSize = 4
	// MaxFrameSize bounds the declared body length and every string field.
	MaxFrameSize = 64 * 1024
	// minBodySize is a body with three empty strings: kind + 3 lengths + timestamp.
	minBodySize = 4 + 4 + 4 + 4 + 8
)

var (
	// ErrMalformedFrame reports a frame body that cannot be decoded.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrLengthOutOfRange reports a declared length outside the protocol
	// bounds. It is fatal to the connection that produced it.
	ErrLengthOutOfRange = errors.New("frame length out of range")
)

// Encode serializes m into a length-prefixed frame ready for the wire. It is
// total for any Message value.
func Encode(m Message) []byte {
	body := make([]byte, 0, minBodySize+len(m.Sender)+len(m.Content)+len(m.Room))
	body = binary.BigEndian.AppendUint32(body, uint32(m.Kind))
	body = appendString(body, m.Sender)
	body = appendString(body, m.Content)
	body = appendString(body, m.Room)
	body = binary.BigEndian.AppendUint64(body, uint64(m.Timestamp.UnixMilli()))

	frame := make([]byte, 0, LengthSize+len(body))
	frame = binary.BigEndian.AppendUint32(frame, uint32(len(body)))
	return append(frame, body...)
}

// Decode parses one complete frame body. It is pure over the slice: the
// caller (the session assembler) is responsible for reassembling exactly the
// declared number of bytes first.
func Decode(body []byte) (Message, error) {
	r := bodyReader{buf: body}

	kind, err := r.uint32()
	if err != nil {
		return Message{}, err
	}
	if Kind(kind) >= kindCount {
		return Message{}, fmt.Errorf("%w: unknown kind ordinal %d", ErrMalformedFrame, kind)
	}
	sender, err := r.string()
	if err != nil {
		return Message{}, err
	}
	content, err := r.string()
	if err != nil {
		return Message{}, err
	}
	room, err := r.string()
	if err != nil {
		return Message{}, err
	}
	millis, err := r.int64()
	if err != nil {
		return Message{}, err
	}
	if r.remaining() != 0 {
		return Message{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformedFrame, r.remaining())
	}

	return Message{
		Kind:      Kind(kind),
		Sender:    sender,
		Content:   content,
		Room:      room,
		Timestamp: time.UnixMilli(millis),
	}, nil
}

func appendString(b []byte, s string) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

type bodyReader struct {
	buf []byte
	off int
}

func (r *bodyReader) remaining() int { return len(r.buf) - r.off }

func (r *bodyReader) uint32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, fmt.Errorf("%w: truncated body", ErrMalformedFrame)
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *bodyReader) int64() (int64, error) {
	if r.remaining() < 8 {
		return 0, fmt.Errorf("%w: truncated body", ErrMalformedFrame)
	}
	v := binary.BigEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return int64(v), nil
}

func (r *bodyReader) string() (string, error) {
	n, err := r.uint32()
	if err != nil {
		return "", err
	}
	if n > MaxFrameSize {
		return "", fmt.Errorf("%w: string of %d bytes", ErrLengthOutOfRange, n)
	}
	if uint32(r.remaining()) < n {
		return "", fmt.Errorf("%w: truncated string", ErrMalformedFrame)
	}
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}
