package airquality

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"

	"github.com/airwatchuk/airwatch/pkg/geo"
)

func TestGridKey(t *testing.T) {
	tests := []struct {
		coord    geo.Coordinate
		expected string
	}{
		{geo.Coordinate{Lat: 51.5074, Lon: -0.1278}, "aq:current:51.51:-0.13"},
		{geo.Coordinate{Lat: 51.5051, Lon: -0.1251}, "aq:current:51.51:-0.13"},
		{geo.Coordinate{Lat: 53.4808, Lon: -2.2426}, "aq:current:53.48:-2.24"},
		{geo.Coordinate{Lat: -0.001, Lon: 0.001}, "aq:current:0.00:0.00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, GridKey(tt.coord))
	}
}

func TestMemoryCache(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	cache := NewMemoryCache()
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	got, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	entry := &Entry{Reading: &Reading{AQI: 3}, FetchedAt: now}
	require.NoError(t, cache.Set(ctx, "k", entry, time.Minute))

	got, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.Reading.AQI)

	now = now.Add(2 * time.Minute)

	got, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, cache.Len())
}

// TestValkeyCache runs against a real server when AIRWATCH_TEST_VALKEY_ADDR is set.
func TestValkeyCache(t *testing.T) {
	addr := os.Getenv("AIRWATCH_TEST_VALKEY_ADDR")
	if addr == "" {
		t.Skip("AIRWATCH_TEST_VALKEY_ADDR not set")
	}

	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	cache := NewValkeyCache(client, "airwatch-test")
	ctx := context.Background()
	require.NoError(t, cache.Ping(ctx))

	key := "aq:current:test:" + time.Now().Format(time.RFC3339Nano)

	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	fetched := time.Now().UTC().Truncate(time.Second)
	entry := &Entry{
		Reading:   NewReading(geo.Coordinate{Lat: 51.5, Lon: -0.1}, fetched, 2, Components{ComponentPM25: 8.2}),
		FetchedAt: fetched,
	}
	require.NoError(t, cache.Set(ctx, key, entry, 10*time.Second))

	got, err = cache.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Reading.AQI)
	assert.True(t, fetched.Equal(got.FetchedAt))
	assert.InDelta(t, 8.2, got.Reading.Components[ComponentPM25], 1e-9)
}
