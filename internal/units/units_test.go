package units

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRepr(t *testing.T) {
	cases := map[uint64]string{
		27:  "W",
		30:  "Wh",
		33:  "A",
		35:  "V",
		44:  "Hz",
		255: "(count)",
		0:   "(Unit 0)",
		200: "(Unit 200)",
	}
	for code, want := range cases {
		require.Equal(t, want, Repr(code), "code %d", code)
	}
}

func TestKnown(t *testing.T) {
	require.True(t, Known(30))
	require.False(t, Known(58))
}
