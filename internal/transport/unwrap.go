package transport

import (
	"bytes"
	"fmt"

	"github.com/sigurn/crc16"
)

var (
	x25    = crc16.MakeTable(crc16.CRC16_X_25)
	kermit = crc16.MakeTable(crc16.CRC16_KERMIT)
)

// Unwrap checks a frame returned by Split, optionally verifies its checksum,
// and returns the unescaped SML file. Trailing fill bytes are kept; the
// datagram decoder stops at them.
func Unwrap(frame []byte, verify bool) ([]byte, error) {
	if len(frame) < 2*seqLen || !bytes.HasPrefix(frame, startSeq) {
		return nil, fmt.Errorf("%w: missing start sequence", ErrFraming)
	}
	end := frame[len(frame)-seqLen:]
	if !bytes.Equal(end[:4], escape) || end[4] != endMarker {
		return nil, fmt.Errorf("%w: missing end sequence", ErrFraming)
	}
	if verify {
		if err := verifyChecksum(frame); err != nil {
			return nil, err
		}
	}
	body := frame[seqLen : len(frame)-seqLen]
	if len(body)%4 != 0 {
		return nil, fmt.Errorf("%w: body length %d is not a multiple of 4", ErrFraming, len(body))
	}
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); i += 4 {
		chunk := body[i : i+4]
		if bytes.Equal(chunk, escape) {
			if i+seqLen > len(body) || !bytes.Equal(body[i+4:i+seqLen], escape) {
				return nil, fmt.Errorf("%w: unpaired escape at offset %d", ErrFraming, seqLen+i)
			}
			out = append(out, escape...)
			i += 4
			continue
		}
		out = append(out, chunk...)
	}
	if padding := int(end[5]); padding > 3 || padding > len(out) {
		return nil, fmt.Errorf("%w: fill count %d", ErrFraming, padding)
	}
	return out, nil
}

// verifyChecksum accepts CRC16/X-25 and CRC16/Kermit in either byte order;
// meters differ in both.
func verifyChecksum(frame []byte) error {
	n := len(frame)
	data := frame[:n-2]
	le := uint16(frame[n-2]) | uint16(frame[n-1])<<8
	be := uint16(frame[n-2])<<8 | uint16(frame[n-1])
	for _, table := range []*crc16.Table{x25, kermit} {
		sum := crc16.Checksum(data, table)
		if sum == le || sum == be {
			return nil
		}
	}
	return fmt.Errorf("%w: received %04x", ErrChecksum, be)
}
