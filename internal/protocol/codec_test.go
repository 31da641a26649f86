package protocol

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Message{
		{Kind: Text, Sender: "alice", Content: "hello", Room: "roses", Timestamp: time.UnixMilli(1700000000000)},
		{Kind: JoinRoom, Sender: "bob", Content: "", Room: "tulips", Timestamp: time.UnixMilli(42)},
		{Kind: CreateRoom, Sender: "carol", Content: "", Room: "lilies", Timestamp: time.UnixMilli(0)},
		{Kind: System, Sender: SystemSender, Content: "welcome, alice", Room: DefaultRoom, Timestamp: time.UnixMilli(1)},
		{Kind: UserList, Sender: "alice", Content: "alice,bob", Room: "roses", Timestamp: time.UnixMilli(99)},
		{Kind: RoomList, Sender: "alice", Content: "roses,tulips", Room: "", Timestamp: time.UnixMilli(99)},
		{Kind: Text, Sender: "dave", Content: "ünïcödé ☺", Room: "général", Timestamp: time.UnixMilli(123456789)},
	}

	for _, want := range cases {
		got, err := Decode(Encode(want)[LengthSize:])
		if err != nil {
			t.Fatalf("Decode(%v) error: %v", want.Kind, err)
		}
		if got.Kind != want.Kind || got.Sender != want.Sender ||
			got.Content != want.Content || got.Room != want.Room {
			t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
		}
		if !got.Timestamp.Equal(want.Timestamp) {
			t.Fatalf("timestamp not preserved: got %v want %v", got.Timestamp, want.Timestamp)
		}
	}
}

func TestEncodeFramePrefix(t *testing.T) {
	frame := Encode(Message{Kind: Text})
	declared := binary.BigEndian.Uint32(frame)
	if int(declared) != len(frame)-LengthSize {
		t.Fatalf("declared length %d, body is %d bytes", declared, len(frame)-LengthSize)
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	frame := Encode(Message{Kind: Text, Sender: "alice"})
	body := frame[LengthSize:]
	binary.BigEndian.PutUint32(body, 9) // no such ordinal

	if _, err := Decode(body); !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestDecodeTruncatedBody(t *testing.T) {
	body := Encode(Message{Kind: Text, Sender: "alice", Content: "hi", Room: "roses"})[LengthSize:]
	for cut := 1; cut < len(body); cut++ {
		if _, err := Decode(body[:len(body)-cut]); err == nil {
			t.Fatalf("expected error with %d bytes cut off", cut)
		}
	}
}

func TestDecodeOversizedStringLength(t *testing.T) {
	body := make([]byte, 0, 8)
	body = binary.BigEndian.AppendUint32(body, uint32(Text))
	body = binary.BigEndian.AppendUint32(body, 70000) // sender length over the bound

	if _, err := Decode(body); !errors.Is(err, ErrLengthOutOfRange) {
		t.Fatalf("expected ErrLengthOutOfRange, got %v", err)
	}
}

func TestDecodeTrailingBytes(t *testing.T) {
	body := Encode(Message{Kind: Text, Sender: "alice"})[LengthSize:]
	body = append(body, 0xFF)

	if _, err := Decode(body); !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestNewMessageDefaults(t *testing.T) {
	m := NewMessage(Text, "", "hi", "")
	if m.Sender != DefaultSender {
		t.Fatalf("sender default: got %q want %q", m.Sender, DefaultSender)
	}
	if m.Room != DefaultRoom {
		t.Fatalf("room default: got %q want %q", m.Room, DefaultRoom)
	}
	if m.Timestamp.IsZero() {
		t.Fatal("timestamp not assigned at construction")
	}
}
