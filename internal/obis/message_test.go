package obis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/d21d3q/gosml/internal/frame"
	"github.com/d21d3q/gosml/internal/testutil"
)

func TestMessageType(t *testing.T) {
	dg, err := frame.Decode(testutil.LoadBytes(t, "sml/emh_datagram.hex"))
	require.NoError(t, err)

	var names []string
	for _, msg := range dg.Messages {
		tag, ok := MessageType(msg)
		require.True(t, ok)
		names = append(names, MessageName(tag))
	}
	require.Equal(t, []string{"open response", "get list response", "close response"}, names)

	_, ok := MessageType(list(val(1), val(), val()))
	require.False(t, ok)
	_, ok = MessageType(list(val(1), val(), val(), list(list())))
	require.False(t, ok)
	require.Equal(t, "message 0x0f00", MessageName(0x0f00))
}
