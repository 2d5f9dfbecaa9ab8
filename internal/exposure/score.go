package exposure

import (
	"math"

	"github.com/airwatchuk/airwatch/internal/airquality"
	"github.com/airwatchuk/airwatch/internal/random"
)

// Risk is the route-level health risk category.
type Risk string

const (
	RiskLow      Risk = "low"
	RiskModerate Risk = "moderate"
	RiskHigh     Risk = "high"
	RiskVeryHigh Risk = "very_high"
)

// DefaultThreshold is the AQI above which a sample counts as high exposure.
const DefaultThreshold = 80

// Wholesale default used when no sample could be measured.
const (
	defaultExposure = 75
	fallbackMin     = 50
	fallbackMax     = 100
)

// Score weights and normalisation caps.
const (
	weightExposure = 0.6
	weightDistance = 0.2
	weightDuration = 0.1
	weightHighSegs = 0.1

	exposureCap = 100.0
	distanceCap = 10000.0 // metres
	durationCap = 3600.0  // seconds
	highSegsCap = 3.0
)

// pm25Breakpoints map PM2.5 concentrations (µg/m³) to an AQI-equivalent.
var pm25Breakpoints = []struct {
	upTo float64
	aqi  float64
}{
	{12, 25},
	{35, 50},
	{55, 75},
	{150, 100},
	{250, 150},
}

// DeriveAQI converts a reading to an AQI-equivalent exposure value from its
// PM2.5 concentration. Without PM2.5 a random value in [50, 100) is used.
func DeriveAQI(r *airquality.Reading, src random.Source) float64 {
	if r != nil {
		if pm25, ok := r.Components.Get(airquality.ComponentPM25); ok {
			return pm25AQI(pm25)
		}
	}
	return random.Uniform(src, fallbackMin, fallbackMax)
}

func pm25AQI(pm25 float64) float64 {
	for _, bp := range pm25Breakpoints {
		if pm25 <= bp.upTo {
			return bp.aqi
		}
	}
	return 200
}

// HealthScore combines exposure, distance, duration and high-exposure count
// into a 0-100 score. Lower is healthier.
func HealthScore(avgExposure, distanceMeters, durationSeconds float64, highSegments int) int {
	sum := weightExposure*math.Min(avgExposure/exposureCap, 1) +
		weightDistance*math.Min(distanceMeters/distanceCap, 1) +
		weightDuration*math.Min(durationSeconds/durationCap, 1) +
		weightHighSegs*math.Min(float64(highSegments)/highSegsCap, 1)
	return int(math.Round(sum * 100))
}

// RiskFor classifies an average exposure.
func RiskFor(avgExposure float64) Risk {
	switch {
	case avgExposure <= 50:
		return RiskLow
	case avgExposure <= 100:
		return RiskModerate
	case avgExposure <= 150:
		return RiskHigh
	default:
		return RiskVeryHigh
	}
}
