package airquality

// Category buckets a pollutant concentration.
type Category string

const (
	CategoryLow      Category = "low"
	CategoryModerate Category = "moderate"
	CategoryHigh     Category = "high"
	CategoryUnknown  Category = "unknown"
)

type threshold struct {
	low      float64
	moderate float64
}

// thresholds are inclusive upper bounds per pollutant.
var thresholds = map[string]threshold{
	PollutantAQI:  {low: 2, moderate: 3},
	ComponentPM25: {low: 15, moderate: 35},
	ComponentPM10: {low: 25, moderate: 50},
	ComponentNO2:  {low: 40, moderate: 80},
	ComponentO3:   {low: 100, moderate: 160},
	ComponentSO2:  {low: 20, moderate: 80},
}

// CategoryFor classifies value for the given pollutant ("aqi" or a component key).
func CategoryFor(pollutant string, value float64) Category {
	t, ok := thresholds[pollutant]
	if !ok {
		return CategoryUnknown
	}
	switch {
	case value <= t.low:
		return CategoryLow
	case value <= t.moderate:
		return CategoryModerate
	default:
		return CategoryHigh
	}
}

// RankablePollutant reports whether pollutant can be used for rankings.
func RankablePollutant(pollutant string) bool {
	_, ok := thresholds[pollutant]
	return ok
}

var descriptions = map[int]string{
	1: "Good",
	2: "Fair",
	3: "Moderate",
	4: "Poor",
	5: "Very Poor",
}

// Description returns the label for a 1-5 AQI value.
func Description(aqi int) string {
	if d, ok := descriptions[aqi]; ok {
		return d
	}
	return "Unknown"
}
