package obis

import (
	"fmt"

	"github.com/d21d3q/gosml/internal/codec"
	"github.com/d21d3q/gosml/internal/frame"
)

var messageNames = map[uint64]string{
	0x0100: "open request",
	0x0101: "open response",
	0x0200: "close request",
	0x0201: "close response",
	0x0300: "get profile pack request",
	0x0301: "get profile pack response",
	0x0400: "get profile list request",
	0x0401: "get profile list response",
	0x0500: "get proc parameter request",
	0x0501: "get proc parameter response",
	0x0600: "set proc parameter request",
	0x0601: "set proc parameter response",
	0x0700: "get list request",
	0x0701: "get list response",
	0xff01: "attention response",
}

// MessageType returns the body tag of a top-level message.
func MessageType(msg frame.Node) (uint64, bool) {
	body, err := listAt(msg, 3, 1)
	if err != nil {
		return 0, false
	}
	tag, err := valueAt(body, 0)
	if err != nil {
		return 0, false
	}
	return codec.BytesToUint(tag.Payload), true
}

// MessageName renders a message tag for diagnostics.
func MessageName(tag uint64) string {
	if name, ok := messageNames[tag]; ok {
		return name
	}
	return fmt.Sprintf("message 0x%04x", tag)
}
