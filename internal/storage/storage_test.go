package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/d21d3q/gosml/internal/reading"
)

func sample(sensor string, v float64, at time.Time) reading.Reading {
	return reading.Reading{
		Sensor:   sensor,
		Code:     "1-0:1.8.0*255",
		ServerID: "0a01454d480000bc614e",
		Meter:    "1EMH0012345678",
		Unit:     "Wh",
		UnitCode: 30,
		Scaler:   -1,
		Type:     "uint",
		Value:    &v,
		Text:     "12345678.9",
		Time:     at,
	}
}

func TestLatest(t *testing.T) {
	store, err := OpenLatest(filepath.Join(t.TempDir(), "latest.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get("energy")
	require.ErrorIs(t, err, ErrNotFound)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, store.Put(sample("energy", 1, at)))
	require.NoError(t, store.Put(sample("energy", 2, at.Add(time.Minute))))
	require.NoError(t, store.Put(sample("power", 3, at)))

	got, err := store.Get("energy")
	require.NoError(t, err)
	require.Equal(t, 2.0, *got.Value)
	require.True(t, got.Time.Equal(at.Add(time.Minute)))
	require.Equal(t, "1EMH0012345678", got.Meter)

	all, err := store.All()
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, 3.0, *all["power"].Value)

	require.Error(t, store.Put(reading.Reading{}))
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	store, err := OpenHistory(filepath.Join(t.TempDir(), "history.sqlite"))
	require.NoError(t, err)
	defer store.Close()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, sample("energy", float64(i), at.Add(time.Duration(i)*time.Second))))
	}
	vendor := reading.Reading{Sensor: "vendor", Code: "129-129:199.130.3*255", Text: "EMH", Time: at}
	require.NoError(t, store.Append(ctx, vendor))

	got, err := store.Recent(ctx, "energy", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 2.0, *got[0].Value)
	require.Equal(t, 1.0, *got[1].Value)
	require.Equal(t, at.Add(2*time.Second).UnixMilli(), got[0].Time.UnixMilli())

	got, err = store.Recent(ctx, "vendor", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Nil(t, got[0].Value)
	require.Equal(t, "EMH", got[0].Text)
}
