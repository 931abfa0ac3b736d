package gosml

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/d21d3q/gosml/internal/frame"
	"github.com/d21d3q/gosml/internal/obis"
	internalopts "github.com/d21d3q/gosml/internal/options"
	"github.com/d21d3q/gosml/internal/reading"
	"github.com/d21d3q/gosml/internal/transport"
)

var transportStart = []byte{0x1b, 0x1b, 0x1b, 0x1b, 0x01, 0x01, 0x01, 0x01}

// Message summarises one top-level SML message.
type Message struct {
	Index int    `json:"index"`
	Type  string `json:"type"`
	Name  string `json:"name"`
}

// Result captures the outcome of Analyze.
type Result struct {
	RawHex    string
	ByteCount int
	Framed    bool
	Messages  []Message
	Readings  Readings
	Warnings  []string
	Tree      string
}

// String renders a human-readable representation of the result.
func (r Result) String() string {
	summary := map[string]any{
		"byte_count": r.ByteCount,
		"raw_hex":    r.RawHex,
		"framed":     r.Framed,
		"messages":   r.Messages,
		"readings":   r.Readings,
	}
	if len(r.Warnings) > 0 {
		summary["warnings"] = r.Warnings
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Sprintf("bytes:%d raw:%s (marshal error: %v)", r.ByteCount, r.RawHex, err)
	}
	return string(data)
}

// AnalyzeHex decodes a hex encoded SML file or transport frame.
func AnalyzeHex(ctx context.Context, raw string) (Result, error) {
	return AnalyzeHexWithOptions(ctx, raw, AnalyzeOptions{})
}

// AnalyzeHexWithOptions decodes a hex encoded SML file with custom options.
func AnalyzeHexWithOptions(ctx context.Context, raw string, opts AnalyzeOptions) (Result, error) {
	data, err := decodeHex(raw)
	if err != nil {
		return Result{}, err
	}
	return Analyze(ctx, data, opts)
}

// Analyze decodes data, which is either a bare SML file or a complete
// transport frame. Truncated or malformed parts are reported as warnings
// next to everything that could still be decoded.
func Analyze(ctx context.Context, data []byte, opts AnalyzeOptions) (Result, error) {
	ctx, err := opts.toInternal(ctx)
	if err != nil {
		return Result{}, err
	}
	result := Result{
		RawHex:    strings.ToUpper(hex.EncodeToString(data)),
		ByteCount: len(data),
	}

	file := data
	if bytes.HasPrefix(data, transportStart) {
		file, err = transport.Unwrap(data, opts.verifyCRC())
		if err != nil {
			return result, err
		}
		result.Framed = true
	}

	dg, err := frame.Decode(file)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	}
	for i, msg := range dg.Messages {
		m := Message{Index: i, Type: "unknown", Name: "unknown"}
		if tag, ok := obis.MessageType(msg); ok {
			m.Type = fmt.Sprintf("0x%04X", tag)
			m.Name = obis.MessageName(tag)
		}
		result.Messages = append(result.Messages, m)
	}
	if opts.Tree {
		result.Tree = dg.Dump()
	}

	records, err := obis.Extract(dg)
	result.Warnings = append(result.Warnings, warnings(err)...)
	table := internalopts.ServerIDTable(ctx)
	for _, rec := range records {
		result.Readings = append(result.Readings, reading.New(rec, reading.FormatAuto, table))
	}
	return result, nil
}

func warnings(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, warnings(e)...)
		}
		return out
	}
	return []string{err.Error()}
}

func decodeHex(input string) ([]byte, error) {
	clean := stripWhitespace(input)
	if strings.HasPrefix(clean, "0x") || strings.HasPrefix(clean, "0X") {
		clean = clean[2:]
	}
	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("hex datagram must contain an even number of digits, got %d", len(clean))
	}
	decoded := make([]byte, len(clean)/2)
	if _, err := hex.Decode(decoded, []byte(clean)); err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return decoded, nil
}

func stripWhitespace(s string) string {
	builder := strings.Builder{}
	builder.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || r == '|' || r == '_' || r == ':' {
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}
