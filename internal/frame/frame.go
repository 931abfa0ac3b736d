package frame

import (
	"fmt"
	"strings"
)

const fillByte = 0x00

// Datagram holds the top-level messages of one SML file in buffer order.
// Consumed is the offset at which decoding stopped.
type Datagram struct {
	Messages []Node
	Consumed int
}

// Decode splits one complete SML file into its messages. Decoding stops at the
// end of buf, at a fill byte, or at the first message that fails to decode.
// The messages decoded before a failure are always returned; the error only
// describes why the rest of the buffer was dropped.
func Decode(buf []byte) (Datagram, error) {
	d := decoder{buf: buf}
	var dg Datagram
	for d.pos < len(buf) {
		if buf[d.pos] == fillByte {
			break
		}
		start := d.pos
		msg, err := d.node(0)
		if err != nil {
			dg.Consumed = start
			return dg, fmt.Errorf("message %d at offset %d: %w", len(dg.Messages), start, err)
		}
		dg.Messages = append(dg.Messages, msg)
	}
	dg.Consumed = d.pos
	return dg, nil
}

// Dump renders every message tree for diagnostics.
func (dg Datagram) Dump() string {
	var b strings.Builder
	for i, msg := range dg.Messages {
		fmt.Fprintf(&b, "message %d:\n", i)
		msg.dump(&b, 1)
	}
	return b.String()
}
