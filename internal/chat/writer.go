package chat

import "net"

// WriteFrames drains encoded frames from out onto conn, handling short
// writes. It owns closing the connection: the reactor closes out during
// teardown, the writer finishes flushing what is queued and then hangs up,
// which also unblocks the connection's reader goroutine.
func WriteFrames(conn net.Conn, out <-chan []byte) {
	defer conn.Close()

	for frame := range out {
		for len(frame) > 0 {
			n, err := conn.Write(frame)
			if err != nil {
				// Keep draining so the channel close is always observed.
				for range out {
				}
				return
			}
			frame = frame[n:]
		}
	}
}
