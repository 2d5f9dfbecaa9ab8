package airquality

import (
	"context"
	"math"
	"time"

	"github.com/airwatchuk/airwatch/pkg/geo"
)

const (
	// HistoryInterval is the spacing between synthetic history points.
	HistoryInterval = 6 * time.Hour

	// MaxHistoryPoints caps the number of generated points (about a year at 6 h).
	MaxHistoryPoints = 1500

	// DefaultHistoryRange is used when no start is given.
	DefaultHistoryRange = 365 * 24 * time.Hour
)

// fallbackAQI and fallbackComponents seed history when no current reading is available.
const fallbackAQI = 3

var fallbackComponents = Components{
	ComponentPM25: 15.5,
	ComponentPM10: 25.2,
	ComponentNO2:  45.3,
	ComponentO3:   85.1,
	ComponentSO2:  8.7,
	ComponentCO:   890,
	ComponentNH3:  3.2,
}

// historyComponents are the components carried in synthetic history.
var historyComponents = []string{
	ComponentPM25, ComponentPM10, ComponentNO2, ComponentO3, ComponentSO2, ComponentCO, ComponentNH3,
}

// Historical returns a synthetic history for coord between start and end,
// derived from the current reading with seasonal, daily and random variation.
// The upstream history API is paid-only, so values are simulated.
// A zero start means one year before end; a zero end means now.
func (s *Service) Historical(ctx context.Context, coord geo.Coordinate, start, end time.Time) (*History, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	if end.IsZero() {
		end = s.now()
	}
	if start.IsZero() {
		start = end.Add(-DefaultHistoryRange)
	}

	history := &History{Coordinate: coord, Items: []Reading{}}
	if end.Before(start) {
		return history, nil
	}

	base, err := s.Current(ctx, coord)
	if err != nil {
		s.logger.Debug().Err(err).Msg("no current reading, using fallback values for history")
		base = nil
	}

	history.Items = s.generateHistory(coord, base, start, end)
	return history, nil
}

func (s *Service) generateHistory(coord geo.Coordinate, base *Reading, start, end time.Time) []Reading {
	baseAQI := fallbackAQI
	if base != nil && base.AQI > 0 {
		baseAQI = base.AQI
	}

	baseValues := make(map[string]float64, len(historyComponents))
	for _, key := range historyComponents {
		v := fallbackComponents[key]
		if base != nil {
			if got, ok := base.Components.Get(key); ok && got > 0 {
				v = got
			}
		}
		baseValues[key] = v
	}

	count := 0
	for t := end; !t.Before(start) && count < MaxHistoryPoints; t = t.Add(-HistoryInterval) {
		count++
	}

	items := make([]Reading, count)
	t := end
	for i := count - 1; i >= 0; i-- {
		factor := seasonalFactor(t) * dailyFactor(t) * (0.7 + s.rand.Float64()*0.6)

		aqi := int(math.Round(float64(baseAQI) * factor))
		aqi = max(1, min(5, aqi))

		comps := make(Components, len(baseValues))
		for key, v := range baseValues {
			comps[key] = math.Max(0, round2(v*factor))
		}

		items[i] = *NewReading(coord, t, aqi, comps)
		t = t.Add(-HistoryInterval)
	}

	return items
}

// seasonalFactor peaks in winter. Months are counted from zero (January).
func seasonalFactor(t time.Time) float64 {
	month := float64(t.UTC().Month() - 1)
	return 0.8 + 0.4*math.Sin((month-9)*math.Pi/6)
}

// dailyFactor raises rush hours and lowers night time.
func dailyFactor(t time.Time) float64 {
	hour := t.UTC().Hour()
	switch {
	case (hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 19):
		return 1.3
	case hour >= 22 || hour <= 5:
		return 0.7
	default:
		return 1.0
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
