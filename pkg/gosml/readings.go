package gosml

import (
	"fmt"

	"github.com/d21d3q/gosml/internal/obis"
	"github.com/d21d3q/gosml/internal/reading"
)

// Readings offers typed lookups by OBIS code. Codes may omit the "*F"
// group, e.g. "1-0:1.8.0".
type Readings []reading.Reading

// Find returns the first reading whose code matches.
func (rs Readings) Find(code string) (reading.Reading, error) {
	pattern, err := obis.ParseCode(code)
	if err != nil {
		return reading.Reading{}, err
	}
	for _, r := range rs {
		got, err := obis.ParseCode(r.Code)
		if err != nil {
			continue
		}
		if got.Matches(pattern) {
			return r, nil
		}
	}
	return reading.Reading{}, fmt.Errorf("reading %q missing", code)
}

// Float returns the scaled numeric value.
func (rs Readings) Float(code string) (float64, error) {
	r, err := rs.Find(code)
	if err != nil {
		return 0, err
	}
	if r.Value == nil {
		return 0, fmt.Errorf("reading %q is not numeric (%s)", code, r.Type)
	}
	return *r.Value, nil
}

// String returns the reading rendered as text.
func (rs Readings) String(code string) (string, error) {
	r, err := rs.Find(code)
	if err != nil {
		return "", err
	}
	return r.Text, nil
}

// Map returns numeric values, or text for the rest, keyed by code.
func (rs Readings) Map() map[string]any {
	out := make(map[string]any, len(rs))
	for _, r := range rs {
		if r.Value != nil {
			out[r.Code] = *r.Value
			continue
		}
		out[r.Code] = r.Text
	}
	return out
}
