package obis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeString(t *testing.T) {
	require.Equal(t, "1-0:1.8.0*255", Code{1, 0, 1, 8, 0, 255}.String())
	require.Equal(t, "0x010001", Code{1, 0, 1}.String())
}

func TestParseCode(t *testing.T) {
	c, err := ParseCode("1-0:1.8.0*255")
	require.NoError(t, err)
	require.Equal(t, Code{1, 0, 1, 8, 0, 255}, c)

	c, err = ParseCode(" 1-0:16.7.0 ")
	require.NoError(t, err)
	require.Equal(t, Code{1, 0, 16, 7, 0}, c)

	c, err = ParseCode("1-0:96.1.0&255")
	require.NoError(t, err)
	require.Equal(t, Code{1, 0, 96, 1, 0, 255}, c)

	for _, bad := range []string{"", "1-0:1.8", "1-0:1.8.x", "1-0:1.8.0*256", "1:0-1.8.0"} {
		_, err := ParseCode(bad)
		require.Error(t, err, bad)
	}
}

func TestCodeMatches(t *testing.T) {
	code := Code{1, 0, 1, 8, 0, 255}
	require.True(t, code.Matches(Code{1, 0, 1, 8, 0}))
	require.True(t, code.Matches(Code{1, 0, 1, 8, 0, 255}))
	require.False(t, code.Matches(Code{1, 0, 1, 8, 1}))
	require.False(t, code.Matches(Code{1, 0, 1, 8, 0, 0}))
	require.False(t, Code{1, 0, 1, 8, 0}.Matches(Code{1, 0, 1, 8, 0}))
}
