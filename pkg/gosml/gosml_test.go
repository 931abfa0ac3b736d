package gosml

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/d21d3q/gosml/internal/testutil"
)

func TestDecodeHex(t *testing.T) {
	raw := " |1B1B_1B1B 01:01:01:01| "
	data, err := decodeHex(raw)
	require.NoError(t, err)
	require.Len(t, data, 8)
}

func TestDecodeHexOddLength(t *testing.T) {
	_, err := decodeHex("ABC")
	require.Error(t, err)
}

func TestAnalyzeHexGolden(t *testing.T) {
	for _, name := range []string{"emh_datagram", "emh_framed"} {
		t.Run(name, func(t *testing.T) {
			hexStr := testutil.LoadHex(t, "sml/"+name+".hex")
			result, err := AnalyzeHex(context.Background(), hexStr)
			require.NoError(t, err)
			require.Equal(t, name == "emh_framed", result.Framed)
			require.Equal(t, strings.ToUpper(hexStr), result.RawHex)
			require.Empty(t, result.Warnings)
			require.Equal(t, []Message{
				{Index: 0, Type: "0x0101", Name: "open response"},
				{Index: 1, Type: "0x0701", Name: "get list response"},
				{Index: 2, Type: "0x0201", Name: "close response"},
			}, result.Messages)

			var expected []map[string]any
			testutil.LoadJSON(t, "sml/emh_readings.json", &expected)
			data, err := json.Marshal(result.Readings)
			require.NoError(t, err)
			var got []map[string]any
			require.NoError(t, json.Unmarshal(data, &got))
			require.Equal(t, expected, got)
		})
	}
}

func TestReadingsLookup(t *testing.T) {
	result, err := AnalyzeHex(context.Background(), testutil.LoadHex(t, "sml/emh_datagram.hex"))
	require.NoError(t, err)

	energy, err := result.Readings.Float("1-0:1.8.0")
	require.NoError(t, err)
	require.InDelta(t, 12345678.9, energy, 1e-6)

	power, err := result.Readings.Float("1-0:16.7.0*255")
	require.NoError(t, err)
	require.Equal(t, -1234.0, power)

	vendor, err := result.Readings.String("129-129:199.130.3")
	require.NoError(t, err)
	require.Equal(t, "EMH", vendor)

	_, err = result.Readings.Float("129-129:199.130.3")
	require.Error(t, err)
	_, err = result.Readings.Find("1-0:2.8.0")
	require.Error(t, err)
	_, err = result.Readings.Find("not a code")
	require.Error(t, err)

	m := result.Readings.Map()
	require.Equal(t, "EMH", m["129-129:199.130.3*255"])
	require.Equal(t, 1000.0, m["1-0:1.8.1*255"])
}

// get-list response from a meter with a legacy 0x06 server id.
const legacyServerID = "760500000007620062007263070177010b0645535900e8d4a5403901017177070100010800ff0101621e52ff63271001010163e68a00"

func TestAnalyzeOptions(t *testing.T) {
	ctx := context.Background()

	result, err := AnalyzeHex(ctx, legacyServerID)
	require.NoError(t, err)
	require.Len(t, result.Readings, 1)
	require.Equal(t, "1ESY000012345", result.Readings[0].Meter)
	require.Empty(t, result.Tree)

	result, err = AnalyzeHexWithOptions(ctx, legacyServerID, AnalyzeOptions{ServerIDTable: "fnn", Tree: true})
	require.NoError(t, err)
	require.Equal(t, "1ESY000000012345", result.Readings[0].Meter)
	require.Contains(t, result.Tree, "message 0:")
	require.Contains(t, result.Tree, "octet[10] 0645535900e8d4a54039")

	_, err = AnalyzeHexWithOptions(ctx, legacyServerID, AnalyzeOptions{ServerIDTable: "iso"})
	require.Error(t, err)
}

func TestAnalyzeFramedChecksum(t *testing.T) {
	ctx := context.Background()
	framed := testutil.LoadBytes(t, "sml/emh_framed.hex")
	framed[len(framed)-1] ^= 0xff

	_, err := Analyze(ctx, framed, AnalyzeOptions{})
	require.Error(t, err)

	result, err := Analyze(ctx, framed, AnalyzeOptions{SkipCRC: true})
	require.NoError(t, err)
	require.Len(t, result.Readings, 5)
}

func TestAnalyzeTruncatedKeepsDecodedMessages(t *testing.T) {
	data := testutil.LoadBytes(t, "sml/emh_datagram.hex")
	result, err := Analyze(context.Background(), data[:len(data)-6], AnalyzeOptions{})
	require.NoError(t, err)
	require.Len(t, result.Messages, 2)
	require.Len(t, result.Readings, 5)
	require.Len(t, result.Warnings, 1)
	require.Contains(t, result.Warnings[0], "message 2")
}

func TestAnalyzeReportsEntryWarnings(t *testing.T) {
	// get-list response whose first entry has only four elements.
	raw := "760500000007620062007263070177010302aa01017274070100010800ff0101621e" +
		"77070100010800ff0101621e52ff63271001010163191800"
	result, err := AnalyzeHex(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, result.Readings, 1)
	require.Equal(t, "1-0:1.8.0*255", result.Readings[0].Code)
	require.Len(t, result.Warnings, 1)
	require.Contains(t, result.Warnings[0], "entry 0")
}

func TestResultString(t *testing.T) {
	result, err := AnalyzeHex(context.Background(), testutil.LoadHex(t, "sml/emh_datagram.hex"))
	require.NoError(t, err)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.String()), &summary))
	require.Equal(t, 212.0, summary["byte_count"])
	require.Equal(t, false, summary["framed"])
	require.Len(t, summary["readings"], 5)
	require.NotContains(t, summary, "warnings")
}
