// Package client is a programmatic chat client speaking the binary frame
// protocol. Front-ends build on it; the integration tests use it as a real
// peer for the server.
package client

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/andy6609/room-chat-server/internal/protocol"
)

// Client holds one connection to the chat server. Set the callbacks before
// calling Run; they fire on the reader goroutine and must not block for long.
type Client struct {
	// OnMessage receives every decoded message from the server.
	OnMessage func(protocol.Message)
	// OnStatus fires once with false when the connection ends.
	OnStatus func(connected bool)

	username string

	mu        sync.Mutex
	conn      net.Conn
	connected bool
}

// Dial connects to addr and sends the registration frame carrying username in
// its sender field — the first frame on a connection always is the
// registration request.
func Dial(addr, username string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c := &Client{username: username, conn: conn, connected: true}
	if err := c.send(protocol.NewMessage(protocol.Text, username, "", "")); err != nil {
		conn.Close()
		return nil, fmt.Errorf("register: %w", err)
	}
	return c, nil
}

// Run reads frames until the connection closes, invoking OnMessage for each
// decoded message. It returns nil on a clean hangup and the terminating error
// otherwise. Call it on its own goroutine.
func (c *Client) Run() error {
	defer c.Close()

	var asm protocol.Assembler
	buf := make([]byte, 4096)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			msgs, ferr := asm.Feed(buf[:n])
			for _, m := range msgs {
				if c.OnMessage != nil {
					c.OnMessage(m)
				}
			}
			if ferr != nil {
				return ferr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

// SendText sends chat text to the client's current room on the server side;
// room is informational and may be empty.
func (c *Client) SendText(content, room string) error {
	return c.send(protocol.NewText(c.username, content, room))
}

// JoinRoom asks the server to move this client into the named room.
func (c *Client) JoinRoom(room string) error {
	return c.send(protocol.NewMessage(protocol.JoinRoom, c.username, "", room))
}

// CreateRoom asks the server to create the named room and join it.
func (c *Client) CreateRoom(room string) error {
	return c.send(protocol.NewMessage(protocol.CreateRoom, c.username, "", room))
}

// RequestUsers asks for the user list of the current room.
func (c *Client) RequestUsers() error {
	return c.send(protocol.NewMessage(protocol.UserList, c.username, "", ""))
}

// RequestRooms asks for the live room name set.
func (c *Client) RequestRooms() error {
	return c.send(protocol.NewMessage(protocol.RoomList, c.username, "", ""))
}

// Connected reports whether the connection is still up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close hangs up. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = false
	c.conn.Close()
	c.mu.Unlock()

	if c.OnStatus != nil {
		c.OnStatus(false)
	}
}

func (c *Client) send(m protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return net.ErrClosed
	}
	frame := protocol.Encode(m)
	for len(frame) > 0 {
		n, err := c.conn.Write(frame)
		if err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
		frame = frame[n:]
	}
	return nil
}
