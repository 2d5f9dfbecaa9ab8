package models

// RouteRequest is the body of a route calculation.
type RouteRequest struct {
	Origin      *Point       `json:"origin"`
	Destination *Point       `json:"destination"`
	Options     RouteOptions `json:"options"`
}

// RouteOptions tunes a route calculation. Zero values select the defaults.
type RouteOptions struct {
	Vehicle            string   `json:"vehicle,omitempty"`
	AvoidHighPollution *bool    `json:"avoidHighPollution,omitempty"`
	MaxAlternatives    int      `json:"maxAlternatives,omitempty"`
	PollutionThreshold *float64 `json:"pollutionThreshold,omitempty"`
}

// Validate returns field errors for the request.
func (r *RouteRequest) Validate() []FieldError {
	errs := r.Origin.Validate("origin")
	errs = append(errs, r.Destination.Validate("destination")...)
	if r.Options.MaxAlternatives < 0 || r.Options.MaxAlternatives > 10 {
		errs = append(errs, FieldError{Field: "options.maxAlternatives", Message: "must be between 0 and 10 (0 = default)", Code: "OUT_OF_RANGE"})
	}
	if r.Options.PollutionThreshold != nil && *r.Options.PollutionThreshold < 0 {
		errs = append(errs, FieldError{Field: "options.pollutionThreshold", Message: "must not be negative", Code: "OUT_OF_RANGE"})
	}
	return errs
}

// RouteResponse is the result of a route calculation.
type RouteResponse struct {
	Success       bool    `json:"success"`
	Routes        []Route `json:"routes"`
	CleanestRoute *Route  `json:"cleanestRoute"`
	TotalRoutes   int     `json:"totalRoutes"`
}

// RouteFailure is returned when no route could be calculated.
type RouteFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Route is a ranked route with its exposure annotation.
type Route struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Coordinates are [lon, lat] pairs.
	Coordinates [][2]float64 `json:"coordinates"`
	// Polyline is the same path in encoded polyline form, precision 5.
	Polyline        string        `json:"polyline"`
	DistanceMeters  float64       `json:"distance"`
	DurationSeconds float64       `json:"duration"`
	Provider        string        `json:"provider"`
	ProviderName    string        `json:"providerName"`
	Archetype       string        `json:"archetype,omitempty"`
	Instructions    []Instruction `json:"instructions"`

	PollutionScore           float64 `json:"pollutionScore"`
	MaxExposure              float64 `json:"maxExposure"`
	HighExposureSegmentCount int     `json:"highExposureSegments"`
	HealthScore              int     `json:"healthScore"`
	HealthRisk               string  `json:"healthRisk"`
	SampledPoints            int     `json:"sampledPoints"`
	FailedSamples            int     `json:"failedSamples,omitempty"`
	Estimated                bool    `json:"estimated,omitempty"`
}

// Instruction is one advisory turn instruction.
type Instruction struct {
	Text     string  `json:"text"`
	Distance float64 `json:"distance"`
}
