package frame

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/d21d3q/gosml/internal/codec"
)

// Type is the 3-bit SML type tag taken from the high nibble of a type-length byte.
type Type uint8

const (
	TypeOctetString Type = 0x0
	TypeBool        Type = 0x4
	TypeInt         Type = 0x5
	TypeUint        Type = 0x6
	TypeList        Type = 0x7
)

func (t Type) String() string {
	switch t {
	case TypeOctetString:
		return "octet"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeUint:
		return "uint"
	case TypeList:
		return "list"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Kind selects which of Children or Payload a Node carries.
type Kind uint8

const (
	KindValue Kind = iota
	KindList
	KindEndOfMessage
)

const (
	endOfMessage = 0x00
	extendedBit  = 0x08
	maxDepth     = 64
)

var (
	ErrTruncated = errors.New("sml: node exceeds buffer")
	ErrMalformed = errors.New("sml: malformed type-length field")
)

// Node is one element of a decoded SML tree. List nodes own Children, value
// nodes own a copy of their Payload bytes.
type Node struct {
	Kind     Kind
	Type     Type
	Children []Node
	Payload  []byte
}

// IsValue reports whether the node carries a payload.
func (n Node) IsValue() bool { return n.Kind == KindValue }

// IsList reports whether the node is a list.
func (n Node) IsList() bool { return n.Kind == KindList }

// Child returns the i-th child of a list node.
func (n Node) Child(i int) (Node, bool) {
	if n.Kind != KindList || i < 0 || i >= len(n.Children) {
		return Node{}, false
	}
	return n.Children[i], true
}

// Dump renders the subtree as indented text for diagnostics.
func (n Node) Dump() string {
	var b strings.Builder
	n.dump(&b, 0)
	return b.String()
}

func (n Node) dump(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n.Kind {
	case KindEndOfMessage:
		fmt.Fprintf(b, "%send of message\n", indent)
	case KindList:
		fmt.Fprintf(b, "%slist(%d)\n", indent, len(n.Children))
		for _, child := range n.Children {
			child.dump(b, depth+1)
		}
	default:
		fmt.Fprintf(b, "%s%s[%d] %s\n", indent, n.Type, len(n.Payload), codec.HexRepr(n.Payload))
	}
}

// DecodeNode decodes exactly one node starting at offset and returns it with
// the offset of the first byte after it.
func DecodeNode(buf []byte, offset int) (Node, int, error) {
	d := decoder{buf: buf, pos: offset}
	n, err := d.node(0)
	if err != nil {
		return Node{}, offset, err
	}
	return n, d.pos, nil
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) node(depth int) (Node, error) {
	if depth > maxDepth {
		return Node{}, fmt.Errorf("%w: nesting deeper than %d at offset %d", ErrMalformed, maxDepth, d.pos)
	}
	if d.pos >= len(d.buf) {
		return Node{}, fmt.Errorf("%w: missing type-length byte at offset %d", ErrTruncated, d.pos)
	}
	tl := d.buf[d.pos]
	if tl == endOfMessage {
		d.pos++
		return Node{Kind: KindEndOfMessage}, nil
	}
	tag := tl >> 4
	length := int(tl & 0x0F)
	parseLength := length
	if tag&extendedBit != 0 {
		// TODO: keep reading continuation bytes while their 0x08 bit is set;
		// a single one limits lengths to 0xFF.
		if d.pos+1 >= len(d.buf) {
			return Node{}, fmt.Errorf("%w: missing length continuation at offset %d", ErrTruncated, d.pos+1)
		}
		length = length<<4 | int(d.buf[d.pos+1]&0x0F)
		parseLength = length - 1
		d.pos++
	}
	if parseLength < 0 {
		return Node{}, fmt.Errorf("%w: length %d at offset %d", ErrMalformed, length, d.pos)
	}
	if d.pos+parseLength > len(d.buf) {
		return Node{}, fmt.Errorf("%w: offset %d needs %d bytes, buffer has %d", ErrTruncated, d.pos, parseLength, len(d.buf)-d.pos)
	}

	typ := Type(tag & 0x07)
	if typ == TypeList {
		d.pos++
		n := Node{Kind: KindList, Type: TypeList, Children: make([]Node, 0, parseLength)}
		for i := 0; i < parseLength; i++ {
			child, err := d.node(depth + 1)
			if err != nil {
				return Node{}, err
			}
			n.Children = append(n.Children, child)
		}
		return n, nil
	}

	if parseLength < 1 {
		return Node{}, fmt.Errorf("%w: value length %d at offset %d", ErrMalformed, parseLength, d.pos)
	}
	payload := bytes.Clone(d.buf[d.pos+1 : d.pos+parseLength])
	d.pos += parseLength
	return Node{Kind: KindValue, Type: typ, Payload: payload}, nil
}
