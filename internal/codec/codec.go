// Package codec converts raw SML byte spans into integers and text.
package codec

import "encoding/hex"

// BytesToUint accumulates b big-endian into an unsigned integer. Spans longer
// than 8 bytes overflow silently and keep only the low 64 bits.
func BytesToUint(b []byte) uint64 {
	var value uint64
	for _, by := range b {
		value = value<<8 | uint64(by)
	}
	return value
}

// BytesToInt reinterprets the big-endian value of b as a signed integer whose
// width is taken from the span length: 1, 2 and 4 bytes are sign extended
// from 8, 16 and 32 bits, anything else is read as 64 bits.
func BytesToInt(b []byte) int64 {
	raw := BytesToUint(b)
	switch len(b) {
	case 1:
		return int64(int8(raw))
	case 2:
		return int64(int16(raw))
	case 4:
		return int64(int32(raw))
	default:
		return int64(raw)
	}
}

// BytesToString maps every byte to one character without charset validation.
func BytesToString(b []byte) string {
	runes := make([]rune, len(b))
	for i, by := range b {
		runes[i] = rune(by)
	}
	return string(runes)
}

// HexRepr renders b as lower-case hex without separators.
func HexRepr(b []byte) string {
	return hex.EncodeToString(b)
}
