// Package reading turns extracted OBIS records into consumer-facing values:
// scaled numbers, formatted text and the rendered meter serial.
package reading

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/d21d3q/gosml/internal/codec"
	"github.com/d21d3q/gosml/internal/frame"
	"github.com/d21d3q/gosml/internal/obis"
	"github.com/d21d3q/gosml/internal/serverid"
	"github.com/d21d3q/gosml/internal/units"
)

// Format selects how a record value is rendered as text.
type Format string

const (
	FormatAuto     Format = ""
	FormatText     Format = "text"
	FormatHex      Format = "hex"
	FormatBool     Format = "bool"
	FormatInt      Format = "int"
	FormatUint     Format = "uint"
	FormatServerID Format = "serverid"
)

// ParseFormat validates a configured format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatAuto, FormatText, FormatHex, FormatBool, FormatInt, FormatUint, FormatServerID:
		return f, nil
	default:
		return "", fmt.Errorf("unknown value format %q", s)
	}
}

// Reading is the rendered form of one record.
type Reading struct {
	Sensor   string    `json:"sensor,omitempty"`
	Code     string    `json:"obis"`
	ServerID string    `json:"server_id"`
	Meter    string    `json:"meter"`
	Status   string    `json:"status,omitempty"`
	Unit     string    `json:"unit,omitempty"`
	UnitCode uint64    `json:"unit_code"`
	Scaler   int64     `json:"scaler"`
	Type     string    `json:"type"`
	Raw      string    `json:"raw"`
	Value    *float64  `json:"value,omitempty"`
	Text     string    `json:"text,omitempty"`
	Time     time.Time `json:"time,omitzero"`
}

// New renders rec. Numeric records get Value; every record gets Text in the
// requested format.
func New(rec obis.Record, format Format, table serverid.Table) Reading {
	r := Reading{
		Code:     rec.Code.String(),
		ServerID: codec.HexRepr(rec.ServerID),
		Meter:    table.Format(rec.ServerID),
		Status:   codec.HexRepr(rec.Status),
		UnitCode: rec.Unit,
		Scaler:   rec.Scaler,
		Type:     rec.ValueType.String(),
		Raw:      codec.HexRepr(rec.Value),
	}
	if rec.Unit != 0 {
		r.Unit = units.Repr(rec.Unit)
	}
	if v, ok := Numeric(rec); ok {
		r.Value = &v
	}
	r.Text = Text(rec, format, table)
	return r
}

// Numeric returns raw * 10^scaler for integer and boolean records.
func Numeric(rec obis.Record) (float64, bool) {
	var raw float64
	switch rec.ValueType {
	case frame.TypeInt:
		raw = float64(codec.BytesToInt(rec.Value))
	case frame.TypeUint:
		raw = float64(codec.BytesToUint(rec.Value))
	case frame.TypeBool:
		if truthy(rec.Value) {
			raw = 1
		}
		return raw, true
	default:
		return 0, false
	}
	return scale(raw, rec.Scaler), true
}

func scale(raw float64, scaler int64) float64 {
	if scaler < 0 {
		return raw / math.Pow10(int(-scaler))
	}
	return raw * math.Pow10(int(scaler))
}

// Text renders the record value in format. FormatAuto picks by value type.
func Text(rec obis.Record, format Format, table serverid.Table) string {
	switch format {
	case FormatText:
		return codec.BytesToString(rec.Value)
	case FormatHex:
		return codec.HexRepr(rec.Value)
	case FormatBool:
		return strconv.FormatBool(truthy(rec.Value))
	case FormatInt:
		return strconv.FormatInt(codec.BytesToInt(rec.Value), 10)
	case FormatUint:
		return strconv.FormatUint(codec.BytesToUint(rec.Value), 10)
	case FormatServerID:
		return table.Format(rec.Value)
	}
	switch rec.ValueType {
	case frame.TypeOctetString:
		if printable(rec.Value) {
			return codec.BytesToString(rec.Value)
		}
		return codec.HexRepr(rec.Value)
	case frame.TypeBool:
		return strconv.FormatBool(truthy(rec.Value))
	}
	if v, ok := Numeric(rec); ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return codec.HexRepr(rec.Value)
}

func truthy(b []byte) bool {
	for _, by := range b {
		if by != 0 {
			return true
		}
	}
	return false
}

func printable(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, by := range b {
		if by < 0x20 || by > 0x7E {
			return false
		}
	}
	return true
}
