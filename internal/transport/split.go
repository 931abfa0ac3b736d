// Package transport extracts SML files from a byte stream framed with the
// SML transport protocol v1 escape sequences.
package transport

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	seqLen    = 8
	endMarker = 0x1a
)

// MaxFrameSize bounds a frame; a start sequence with no end within this many
// bytes is dropped.
const MaxFrameSize = 32 * 1024

var (
	escape   = []byte{0x1b, 0x1b, 0x1b, 0x1b}
	startSeq = []byte{0x1b, 0x1b, 0x1b, 0x1b, 0x01, 0x01, 0x01, 0x01}

	ErrFraming  = errors.New("sml transport: invalid framing")
	ErrChecksum = errors.New("sml transport: checksum mismatch")
)

// Split is a bufio.SplitFunc returning complete transport frames, from the
// start sequence up to and including the two checksum bytes. Escape
// sequences are only recognised on 4-byte boundaries after the start.
// Bytes outside frames and frames with unknown escapes are dropped.
func Split(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.Index(data, startSeq)
	if start < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		if keep := len(data) - len(startSeq) + 1; keep > 0 {
			return keep, nil, nil
		}
		return 0, nil, nil
	}
	for j := start + seqLen; j+seqLen <= len(data); j += 4 {
		if !bytes.Equal(data[j:j+4], escape) {
			continue
		}
		next := data[j+4 : j+seqLen]
		switch {
		case bytes.Equal(next, escape):
			j += 4
		case next[0] == endMarker:
			return j + seqLen, data[start : j+seqLen], nil
		case bytes.Equal(next, startSeq[4:]):
			return j, nil, nil
		default:
			return j + seqLen, nil, nil
		}
	}
	if atEOF {
		return len(data), nil, nil
	}
	if len(data)-start > MaxFrameSize {
		return start + seqLen, nil, nil
	}
	return start, nil, nil
}

// Reader yields unwrapped SML files from a byte stream.
type Reader struct {
	scanner *bufio.Scanner
	verify  bool
}

// NewReader wraps r. When verify is set, frames with a bad checksum are
// reported as ErrChecksum.
func NewReader(r io.Reader, verify bool) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 2*MaxFrameSize)
	scanner.Split(Split)
	return &Reader{scanner: scanner, verify: verify}
}

// Next returns the next SML file. A framing or checksum error only concerns
// the current frame; callers may keep calling Next. io.EOF marks the end of
// the stream.
func (r *Reader) Next() ([]byte, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, fmt.Errorf("read frame: %w", err)
		}
		return nil, io.EOF
	}
	return Unwrap(r.scanner.Bytes(), r.verify)
}
