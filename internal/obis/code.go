package obis

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/d21d3q/gosml/internal/codec"
)

// Code is an OBIS object identifier, normally six bytes A-B:C.D.E*F.
type Code []byte

// String renders the code as A-B:C.D.E*F. Codes of any other length fall
// back to their hex form.
func (c Code) String() string {
	if len(c) != 6 {
		return "0x" + codec.HexRepr(c)
	}
	return fmt.Sprintf("%d-%d:%d.%d.%d*%d", c[0], c[1], c[2], c[3], c[4], c[5])
}

// Matches reports whether c satisfies pattern. A five-group pattern (without
// the *F suffix) matches any F.
func (c Code) Matches(pattern Code) bool {
	if len(pattern) == 5 {
		return len(c) == 6 && bytes.HasPrefix(c, pattern)
	}
	return bytes.Equal(c, pattern)
}

// ParseCode accepts "A-B:C.D.E" or "A-B:C.D.E*F" (also "&F").
func ParseCode(s string) (Code, error) {
	s = strings.TrimSpace(s)
	seps := []string{"-", ":", ".", "."}
	code := make(Code, 0, 6)
	rest := s
	for _, sep := range seps {
		idx := strings.Index(rest, sep)
		if idx < 0 {
			return nil, fmt.Errorf("invalid OBIS code %q: missing %q", s, sep)
		}
		b, err := parseGroup(rest[:idx])
		if err != nil {
			return nil, fmt.Errorf("invalid OBIS code %q: %w", s, err)
		}
		code = append(code, b)
		rest = rest[idx+1:]
	}
	last, suffix, hasSuffix := strings.Cut(rest, "*")
	if !hasSuffix {
		last, suffix, hasSuffix = strings.Cut(rest, "&")
	}
	b, err := parseGroup(last)
	if err != nil {
		return nil, fmt.Errorf("invalid OBIS code %q: %w", s, err)
	}
	code = append(code, b)
	if hasSuffix {
		b, err := parseGroup(suffix)
		if err != nil {
			return nil, fmt.Errorf("invalid OBIS code %q: %w", s, err)
		}
		code = append(code, b)
	}
	return code, nil
}

func parseGroup(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("group %q: %w", s, err)
	}
	return byte(v), nil
}
