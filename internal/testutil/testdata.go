// Package testutil loads SML fixtures from the repository testdata directory.
package testutil

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// LoadHex returns the fixture at rel with surrounding whitespace removed.
func LoadHex(t *testing.T, rel string) string {
	t.Helper()
	return strings.TrimSpace(string(readTestdata(t, rel)))
}

// LoadBytes decodes a hex fixture into raw datagram bytes.
func LoadBytes(t *testing.T, rel string) []byte {
	t.Helper()
	b, err := hex.DecodeString(LoadHex(t, rel))
	if err != nil {
		t.Fatalf("hex decode %s: %v", rel, err)
	}
	return b
}

// LoadJSON unmarshals the fixture at rel into v.
func LoadJSON(t *testing.T, rel string, v any) {
	t.Helper()
	if err := json.Unmarshal(readTestdata(t, rel), v); err != nil {
		t.Fatalf("decode %s: %v", rel, err)
	}
}

func readTestdata(t *testing.T, rel string) []byte {
	t.Helper()
	for _, dir := range []string{"testdata", filepath.Join("..", "testdata"), filepath.Join("..", "..", "testdata")} {
		if data, err := os.ReadFile(filepath.Join(dir, rel)); err == nil {
			return data
		}
	}
	t.Fatalf("unable to locate testdata file %s", rel)
	return nil
}
