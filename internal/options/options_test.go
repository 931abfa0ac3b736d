package options

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/d21d3q/gosml/internal/serverid"
)

func TestServerIDTableDefault(t *testing.T) {
	require.Equal(t, serverid.Default.Name, ServerIDTable(context.Background()).Name)
}

func TestServerIDTableRoundTrip(t *testing.T) {
	tbl, err := ParseServerIDTable("fnn")
	require.NoError(t, err)
	ctx := WithServerIDTable(context.Background(), tbl)
	require.Equal(t, "fnn", ServerIDTable(ctx).Name)
}

func TestWithServerIDTableIgnoresZeroTable(t *testing.T) {
	ctx := WithServerIDTable(context.Background(), serverid.Table{})
	require.Equal(t, serverid.Default.Name, ServerIDTable(ctx).Name)
}

func TestParseServerIDTableUnknown(t *testing.T) {
	_, err := ParseServerIDTable("bogus")
	require.Error(t, err)
}

func TestParseServerIDHex(t *testing.T) {
	id, err := ParseServerIDHex(" 0a01 454d48:0000bc614e ")
	require.NoError(t, err)
	require.Equal(t, []byte{0x0a, 0x01, 'E', 'M', 'H', 0x00, 0x00, 0xbc, 0x61, 0x4e}, id)

	id, err = ParseServerIDHex("0x1234")
	require.NoError(t, err)
	require.Equal(t, []byte{0x12, 0x34}, id)

	id, err = ParseServerIDHex("  ")
	require.NoError(t, err)
	require.Nil(t, id)

	_, err = ParseServerIDHex("abc")
	require.Error(t, err)
	_, err = ParseServerIDHex("zz")
	require.Error(t, err)
}
