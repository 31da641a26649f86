package protocol

import (
	"encoding/binary"
	"fmt"
)

// Assembler turns an arbitrarily fragmented byte stream back into complete
// frames. Partial data is retained across Feed calls, so splits may land
// anywhere, including inside the length prefix or a string field.
type Assembler struct {
	buf []byte
}

// Feed appends p to the pending buffer and decodes every frame it completes,
// in order. A declared body length outside the protocol bounds, or a body
// that fails to decode, is a protocol violation: the returned error is fatal
// and the caller must drop the connection. Messages completed before the
// violation are still returned.
func (a *Assembler) Feed(p []byte) ([]Message, error) {
	a.buf = append(a.buf, p...)

	var msgs []Message
	for {
		if len(a.buf) < LengthSize {
			return msgs, nil
		}
		n := binary.BigEndian.Uint32(a.buf)
		if n == 0 || n > MaxFrameSize {
			return msgs, fmt.Errorf("%w: declared body length %d", ErrLengthOutOfRange, n)
		}
		total := LengthSize + int(n)
		if len(a.buf) < total {
			return msgs, nil
		}
		m, err := Decode(a.buf[LengthSize:total])
		if err != nil {
			return msgs, err
		}
		a.buf = a.buf[total:]
		msgs = append(msgs, m)
	}
}

// Pending reports how many buffered bytes are waiting for the rest of a frame.
func (a *Assembler) Pending() int { return len(a.buf) }
