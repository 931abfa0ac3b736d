// Package options carries per-call analyze settings through a context.
package options

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/d21d3q/gosml/internal/serverid"
)

type tableKey struct{}

// WithServerIDTable stores the server id table used to render meter serials.
func WithServerIDTable(ctx context.Context, t serverid.Table) context.Context {
	if t.Name == "" {
		return ctx
	}
	return context.WithValue(ctx, tableKey{}, t)
}

// ServerIDTable retrieves the table from ctx, or serverid.Default.
func ServerIDTable(ctx context.Context) serverid.Table {
	if v := ctx.Value(tableKey{}); v != nil {
		if t, ok := v.(serverid.Table); ok {
			return t
		}
	}
	return serverid.Default
}

// ParseServerIDTable resolves a table name as given on the command line.
func ParseServerIDTable(name string) (serverid.Table, error) {
	return serverid.Lookup(name)
}

// ParseServerIDHex decodes a server id written as hex, ignoring whitespace,
// colons and a 0x prefix. An empty input yields a nil id.
func ParseServerIDHex(input string) ([]byte, error) {
	clean := stripSeparators(input)
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")
	if clean == "" {
		return nil, nil
	}
	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("server id must contain an even number of hex digits, got %d", len(clean))
	}
	dst := make([]byte, len(clean)/2)
	if _, err := hex.Decode(dst, []byte(clean)); err != nil {
		return nil, fmt.Errorf("invalid server id hex: %w", err)
	}
	return dst, nil
}

func stripSeparators(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || r == ':' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
