// Package serverid renders the raw server identifier of an SML meter as the
// serial number printed on the device. Vendor conventions are grouped into
// tables; every table falls back to a hex dump for unknown patterns.
package serverid

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/ghostiam/binstruct"

	"github.com/d21d3q/gosml/internal/codec"
)

// Layout formats one identifier convention.
type Layout struct {
	Name   string
	Match  func(b []byte) bool
	Format func(b []byte) (string, error)
}

// Table is an ordered list of layouts, tried first to last.
type Table struct {
	Name    string
	Layouts []Layout
}

// Format renders b with the first matching layout, or the hex fallback.
func (t Table) Format(b []byte) string {
	s, _ := t.Classify(b)
	return s
}

// Classify is Format that also returns the name of the layout used, or
// "unknown" for the fallback.
func (t Table) Classify(b []byte) (string, string) {
	for _, l := range t.Layouts {
		if !l.Match(b) {
			continue
		}
		if s, err := l.Format(b); err == nil {
			return s, l.Name
		}
	}
	return Fallback(b), "unknown"
}

// Fallback renders b as "(len=N) " followed by its hex dump.
func Fallback(b []byte) string {
	return fmt.Sprintf("(len=%d) %s", len(b), codec.HexRepr(b))
}

var (
	// DIN43863 is the default two-layout table (E DIN 43863-5).
	DIN43863 = Table{Name: "din43863", Layouts: []Layout{dinModern, dinLegacy}}
	// FNN follows the FNN Lastenheft SMGW (2014) classification by first byte.
	FNN = Table{Name: "fnn", Layouts: []Layout{
		fnnRheinEnergie, fnnEON, fnnMAC, fnnDIN2010, fnnIMEI, fnnRWE, fnnDIN2012,
	}}

	Default = DIN43863

	tables = map[string]Table{DIN43863.Name: DIN43863, FNN.Name: FNN}
)

// Format renders b with the Default table.
func Format(b []byte) string {
	return Default.Format(b)
}

// Lookup returns the table registered under name. An empty name selects Default.
func Lookup(name string) (Table, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Default, nil
	}
	t, ok := tables[name]
	if !ok {
		return Table{}, fmt.Errorf("unknown server id table %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return t, nil
}

// Names lists the registered table names.
func Names() []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func match(first byte, size int) func([]byte) bool {
	return func(b []byte) bool {
		return len(b) == size && b[0] == first
	}
}

func reader(b []byte) binstruct.Reader {
	return binstruct.NewReaderFromBytes(b, binary.BigEndian, false)
}

var dinModern = Layout{
	Name:  "din43863-modern",
	Match: func(b []byte) bool { return len(b) == 10 && b[0] >= 0x09 },
	Format: func(b []byte) (string, error) {
		f, err := readModern(b)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d%s%02X%08d", f.meterType%10, f.manufacturer, f.block, f.number%100000000), nil
	},
}

type modernFields struct {
	meterType    uint8
	manufacturer string
	block        uint8
	number       uint32
}

// readModern reads the 2012 layout: type, 3-character manufacturer,
// fabrication block and fabrication number.
func readModern(b []byte) (modernFields, error) {
	var f modernFields
	r := reader(b)
	if _, err := r.ReadUint8(); err != nil {
		return f, err
	}
	var err error
	if f.meterType, err = r.ReadUint8(); err != nil {
		return f, err
	}
	_, manufacturer, err := r.ReadBytes(3)
	if err != nil {
		return f, err
	}
	f.manufacturer = codec.BytesToString(manufacturer)
	if f.block, err = r.ReadUint8(); err != nil {
		return f, err
	}
	if f.number, err = r.ReadUint32(); err != nil {
		return f, err
	}
	return f, nil
}

var dinLegacy = Layout{
	Name:  "din43863-legacy",
	Match: match(0x06, 10),
	Format: func(b []byte) (string, error) {
		manufacturer, value, err := legacyFields(b)
		if err != nil {
			return "", err
		}
		digits := fmt.Sprintf("%013d", value)
		suffix := strings.TrimLeft(digits[5:], "0")
		if suffix == "" {
			suffix = "0"
		}
		return digits[:1] + manufacturer + digits[1:5] + suffix, nil
	},
}

// legacyFields reads the 3-character manufacturer and the 48-bit number of
// the 2010 layout.
func legacyFields(b []byte) (string, uint64, error) {
	r := reader(b)
	if _, err := r.ReadUint8(); err != nil {
		return "", 0, err
	}
	_, manufacturer, err := r.ReadBytes(3)
	if err != nil {
		return "", 0, err
	}
	hi, err := r.ReadUint16()
	if err != nil {
		return "", 0, err
	}
	lo, err := r.ReadUint32()
	if err != nil {
		return "", 0, err
	}
	return codec.BytesToString(manufacturer), uint64(hi)<<32 | uint64(lo), nil
}

var fnnRheinEnergie = Layout{
	Name:  "fnn-bcd",
	Match: match(0x03, 10),
	Format: func(b []byte) (string, error) {
		return codec.HexRepr(b[1:]), nil
	},
}

var fnnEON = Layout{
	Name:  "fnn-eon",
	Match: match(0x04, 8),
	Format: func(b []byte) (string, error) {
		return fmt.Sprintf("%016d", codec.BytesToUint(b[1:])), nil
	},
}

var fnnMAC = Layout{
	Name:  "fnn-mac",
	Match: match(0x05, 7),
	Format: func(b []byte) (string, error) {
		parts := make([]string, 0, 6)
		for _, by := range b[1:] {
			parts = append(parts, fmt.Sprintf("%02x", by))
		}
		return strings.Join(parts, ":"), nil
	},
}

var fnnDIN2010 = Layout{
	Name:  "fnn-din43863-2010",
	Match: match(0x06, 10),
	Format: func(b []byte) (string, error) {
		manufacturer, value, err := legacyFields(b)
		if err != nil {
			return "", err
		}
		meterType := (value / 1000000000000) & 0x0F
		value %= 1000000000000
		return fmt.Sprintf("%X%s%04d%08d", meterType, manufacturer, value/100000000, value%100000000), nil
	},
}

var fnnIMEI = Layout{
	Name:  "fnn-imei",
	Match: match(0x07, 8),
	Format: func(b []byte) (string, error) {
		return fmt.Sprintf("%015d", codec.BytesToUint(b[1:])), nil
	},
}

var fnnRWE = Layout{
	Name:  "fnn-rwe",
	Match: func(b []byte) bool { return len(b) == 8 && b[0] == 0x08 && b[4] == '-' },
	Format: func(b []byte) (string, error) {
		return fmt.Sprintf("%06d-%07d", codec.BytesToUint(b[1:4]), codec.BytesToUint(b[5:8])), nil
	},
}

var fnnDIN2012 = Layout{
	Name:  "fnn-din43863-2012",
	Match: func(b []byte) bool { return len(b) == 10 && (b[0] == 0x09 || b[0] == 0x0A) },
	Format: func(b []byte) (string, error) {
		f, err := readModern(b)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%X%s%02X%08d", f.meterType&0x0F, f.manufacturer, f.block, f.number%100000000), nil
	},
}
