package airquality_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwatchuk/airwatch/internal/airquality"
	"github.com/airwatchuk/airwatch/pkg/geo"
)

func TestUKRegions(t *testing.T) {
	require.Len(t, airquality.UKRegions, 12)
	assert.Equal(t, "London", airquality.UKRegions[0].Name)
	assert.Equal(t, "Newcastle", airquality.UKRegions[11].Name)
	for _, r := range airquality.UKRegions {
		assert.True(t, r.Coordinate.Valid(), r.Name)
	}
}

func TestService_Regions_KeepsFailedRegions(t *testing.T) {
	provider := &mockProvider{failAt: map[geo.Coordinate]bool{manchester: true}}
	svc := newTestService(provider, newFakeClock())

	regions, err := svc.Regions(context.Background())
	require.NoError(t, err)
	require.Len(t, regions, 12)

	for i, r := range regions {
		assert.Equal(t, airquality.UKRegions[i].Name, r.Name)
	}

	assert.Equal(t, "Manchester", regions[1].Name)
	assert.Nil(t, regions[1].Reading)
	assert.NotEmpty(t, regions[1].Error)

	assert.NotNil(t, regions[0].Reading)
	assert.Empty(t, regions[0].Error)
}

func TestService_Regions_NotConfigured(t *testing.T) {
	svc := newTestService(&mockProvider{unconfigured: true}, newFakeClock())

	_, err := svc.Regions(context.Background())
	assert.ErrorIs(t, err, airquality.ErrNotConfigured)
}

func regionWithAQI(name string, aqi int) airquality.RegionReading {
	coord := geo.Coordinate{Lat: 52, Lon: -1}
	return airquality.RegionReading{
		Region:  airquality.Region{Name: name, Coordinate: coord},
		Reading: airquality.NewReading(coord, time.Now(), aqi, airquality.Components{}),
	}
}

func names(rs []airquality.RegionReading) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Name)
	}
	return out
}

func TestRank(t *testing.T) {
	regions := []airquality.RegionReading{
		regionWithAQI("A", 3),
		regionWithAQI("B", 1),
		{Region: airquality.Region{Name: "Failed"}, Error: "timeout"},
		regionWithAQI("C", 5),
		regionWithAQI("D", 2),
		regionWithAQI("E", 4),
	}

	rankings := airquality.Rank(regions, "aqi")

	assert.Equal(t, "aqi", rankings.Pollutant)
	assert.Equal(t, []string{"B", "D", "A", "E", "C"}, names(rankings.All))
	assert.Equal(t, []string{"B", "D"}, names(rankings.Low))
	assert.Equal(t, []string{"A"}, names(rankings.Moderate))
	assert.Equal(t, []string{"E", "C"}, names(rankings.High))
	assert.Equal(t, []string{"B", "D", "A"}, names(rankings.BestAirQuality))
	assert.Equal(t, []string{"A", "E", "C"}, names(rankings.AreasNeedingAttention))
}

func TestRank_FewRegions(t *testing.T) {
	rankings := airquality.Rank([]airquality.RegionReading{regionWithAQI("A", 2), regionWithAQI("B", 1)}, "aqi")

	assert.Equal(t, []string{"B", "A"}, names(rankings.BestAirQuality))
	assert.Equal(t, []string{"B", "A"}, names(rankings.AreasNeedingAttention))
	assert.Empty(t, rankings.High)
}

func TestService_Rankings(t *testing.T) {
	provider := &mockProvider{aqiFor: func(c geo.Coordinate) int {
		if c.Lat > 55 {
			return 1 // Scotland
		}
		return 4
	}}
	svc := newTestService(provider, newFakeClock())

	rankings, err := svc.Rankings(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "aqi", rankings.Pollutant)
	assert.Len(t, rankings.All, 12)
	assert.ElementsMatch(t, []string{"Glasgow", "Edinburgh"}, names(rankings.Low))
	assert.Len(t, rankings.High, 10)
}

func TestService_Rankings_UnknownPollutant(t *testing.T) {
	svc := newTestService(&mockProvider{}, newFakeClock())

	_, err := svc.Rankings(context.Background(), "nh3")
	assert.ErrorIs(t, err, airquality.ErrUnknownPollutant)
}
