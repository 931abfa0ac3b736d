package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/d21d3q/gosml/internal/obis"
)

func TestDispatch(t *testing.T) {
	meterA := []byte{0x0a, 0x01}
	meterB := []byte{0x0a, 0x02}
	records := []obis.Record{
		{ServerID: meterA, Code: obis.Code{1, 0, 1, 8, 0, 255}},
		{ServerID: meterB, Code: obis.Code{1, 0, 1, 8, 0, 255}},
		{ServerID: meterA, Code: obis.Code{1, 0, 16, 7, 0, 255}},
	}

	var reg Registry
	var anyMeter, onlyA, power []obis.Record
	reg.Register(Filter{Code: obis.Code{1, 0, 1, 8, 0}}, func(r obis.Record) { anyMeter = append(anyMeter, r) })
	reg.Register(Filter{ServerID: meterA, Code: obis.Code{1, 0, 1, 8, 0, 255}}, func(r obis.Record) { onlyA = append(onlyA, r) })
	reg.Register(Filter{Code: obis.Code{1, 0, 16, 7, 0, 255}}, func(r obis.Record) { power = append(power, r) })
	require.Equal(t, 3, reg.Len())

	delivered := reg.Dispatch(records)
	require.Equal(t, 4, delivered)
	require.Len(t, anyMeter, 2)
	require.Len(t, onlyA, 1)
	require.Equal(t, meterA, onlyA[0].ServerID)
	require.Len(t, power, 1)
}

func TestDispatchNoListeners(t *testing.T) {
	var reg Registry
	require.Zero(t, reg.Dispatch([]obis.Record{{Code: obis.Code{1, 0, 1, 8, 0, 255}}}))
}
