// Package airquality provides air quality readings, forecasts, synthetic
// history and UK regional comparisons on top of a cached upstream provider.
package airquality

import (
	"errors"
	"time"

	"github.com/airwatchuk/airwatch/pkg/geo"
)

// Provider errors.
var (
	ErrNoMeasurements      = errors.New("no measurements available")
	ErrProviderUnavailable = errors.New("air quality provider unavailable")
	ErrNotConfigured       = errors.New("air quality provider not configured")
	ErrUnknownPollutant    = errors.New("unknown pollutant")
)

// Component keys, as reported by the upstream API.
const (
	ComponentCO   = "co"
	ComponentNO   = "no"
	ComponentNO2  = "no2"
	ComponentO3   = "o3"
	ComponentSO2  = "so2"
	ComponentPM25 = "pm2_5"
	ComponentPM10 = "pm10"
	ComponentNH3  = "nh3"
)

// PollutantAQI ranks by the composite index rather than a component.
const PollutantAQI = "aqi"

// Components maps component keys to concentrations in µg/m³.
// A missing key means the upstream did not report that component.
type Components map[string]float64

// Get returns the concentration for key and whether it was reported.
func (c Components) Get(key string) (float64, bool) {
	v, ok := c[key]
	return v, ok
}

// Level is a pollutant concentration with its category.
type Level struct {
	Value       float64  `json:"value"`
	Unit        string   `json:"unit"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
}

// Reading is a single air quality observation or forecast step.
type Reading struct {
	Coordinate     geo.Coordinate   `json:"coord"`
	Timestamp      time.Time        `json:"timestamp"`
	AQI            int              `json:"aqi"`
	AQIDescription string           `json:"aqiDescription"`
	Components     Components       `json:"components"`
	Pollutants     map[string]Level `json:"pollutants,omitempty"`
}

// pollutantLabels lists the components shown with a category, keyed by display name.
var pollutantLabels = []struct {
	label       string
	key         string
	description string
}{
	{"PM2.5", ComponentPM25, "Fine Particulate Matter"},
	{"PM10", ComponentPM10, "Coarse Particulate Matter"},
	{"NO₂", ComponentNO2, "Nitrogen Dioxide"},
	{"O₃", ComponentO3, "Ozone"},
	{"SO₂", ComponentSO2, "Sulphur Dioxide"},
}

// NewReading builds a Reading and fills the derived description and pollutant levels.
func NewReading(coord geo.Coordinate, at time.Time, aqi int, components Components) *Reading {
	r := &Reading{
		Coordinate:     coord,
		Timestamp:      at.UTC(),
		AQI:            aqi,
		AQIDescription: Description(aqi),
		Components:     components,
		Pollutants:     make(map[string]Level, len(pollutantLabels)),
	}
	for _, p := range pollutantLabels {
		v, ok := components.Get(p.key)
		if !ok {
			continue
		}
		r.Pollutants[p.label] = Level{
			Value:       v,
			Unit:        "μg/m³",
			Description: p.description,
			Category:    CategoryFor(p.key, v),
		}
	}
	return r
}

// Value returns the reading's value for a ranking pollutant: "aqi" or a component key.
// Unreported components read as zero.
func (r *Reading) Value(pollutant string) float64 {
	if pollutant == PollutantAQI {
		return float64(r.AQI)
	}
	v, _ := r.Components.Get(pollutant)
	return v
}

// Forecast is an ordered list of future readings for one location.
type Forecast struct {
	Coordinate geo.Coordinate `json:"coord"`
	Items      []Reading      `json:"list"`
}

// History is an ordered list of past readings for one location.
type History struct {
	Coordinate geo.Coordinate `json:"coord"`
	Items      []Reading      `json:"list"`
}

// Region is a named UK city used for regional comparison.
type Region struct {
	Name       string         `json:"name"`
	Coordinate geo.Coordinate `json:"coord"`
}

// RegionReading is a region with its current reading, or the error that prevented it.
type RegionReading struct {
	Region
	Reading *Reading `json:"airQuality"`
	Error   string   `json:"error,omitempty"`
}

// Rankings orders regions by one pollutant and groups them by category.
type Rankings struct {
	Pollutant             string          `json:"pollutant"`
	Low                   []RegionReading `json:"low"`
	Moderate              []RegionReading `json:"moderate"`
	High                  []RegionReading `json:"high"`
	BestAirQuality        []RegionReading `json:"bestAirQuality"`
	AreasNeedingAttention []RegionReading `json:"areasNeedingAttention"`
	All                   []RegionReading `json:"all"`
}
