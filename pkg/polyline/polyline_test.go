package polyline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwatchuk/airwatch/pkg/geo"
)

func TestDecode_GoogleExample(t *testing.T) {
	coords := Decode("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	require.Len(t, coords, 3)

	expected := []geo.Coordinate{
		{Lat: 38.5, Lon: -120.2},
		{Lat: 40.7, Lon: -120.95},
		{Lat: 43.252, Lon: -126.453},
	}
	for i, c := range coords {
		assert.InDelta(t, expected[i].Lat, c.Lat, 1e-5)
		assert.InDelta(t, expected[i].Lon, c.Lon, 1e-5)
	}
}

func TestDecode_EmptyString(t *testing.T) {
	assert.Nil(t, Decode(""))
}

func TestDecode_Truncated(t *testing.T) {
	// Second point's longitude is cut off.
	coords := Decode("_p~iF~ps|U_ulL")
	assert.Len(t, coords, 1)
}

func TestEncode_GoogleExample(t *testing.T) {
	encoded := Encode([]geo.Coordinate{
		{Lat: 38.5, Lon: -120.2},
		{Lat: 40.7, Lon: -120.95},
		{Lat: 43.252, Lon: -126.453},
	})
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC_mqNvxq`@", encoded)
}

func TestEncode_Empty(t *testing.T) {
	assert.Empty(t, Encode(nil))
}

func TestEncodeDecode_UKRoute(t *testing.T) {
	route := []geo.Coordinate{
		{Lat: 51.5074, Lon: -0.1278},
		{Lat: 52.4862, Lon: -1.8904},
		{Lat: 53.4808, Lon: -2.2426},
	}

	decoded := Decode(Encode(route))
	require.Len(t, decoded, len(route))
	for i := range route {
		assert.InDelta(t, route[i].Lat, decoded[i].Lat, 1e-5)
		assert.InDelta(t, route[i].Lon, decoded[i].Lon, 1e-5)
	}
}

func TestLength(t *testing.T) {
	assert.Zero(t, Length(nil))
	assert.Zero(t, Length([]geo.Coordinate{{Lat: 51.5, Lon: -0.1}}))

	a := geo.Coordinate{Lat: 51.5074, Lon: -0.1278}
	b := geo.Coordinate{Lat: 52.4862, Lon: -1.8904}
	c := geo.Coordinate{Lat: 53.4808, Lon: -2.2426}

	assert.InDelta(t, geo.Distance(a, b)+geo.Distance(b, c), Length([]geo.Coordinate{a, b, c}), 1e-6)
}

func BenchmarkDecode(b *testing.B) {
	encoded := "_p~iF~ps|U_ulLnnqC_mqNvxq`@"
	for i := 0; i < b.N; i++ {
		Decode(encoded)
	}
}
