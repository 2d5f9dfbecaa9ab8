package openrouteservice

// directionsRequest is the body of POST /v2/directions/{profile}.
// Coordinates are [lon, lat] pairs.
type directionsRequest struct {
	Coordinates  [][2]float64  `json:"coordinates"`
	Alternatives *alternatives `json:"alternative_routes,omitempty"`
	Instructions bool          `json:"instructions"`
	Units        string        `json:"units"`
	Language     string        `json:"language"`
}

type alternatives struct {
	TargetCount  int     `json:"target_count"`
	WeightFactor float64 `json:"weight_factor,omitempty"`
	ShareFactor  float64 `json:"share_factor,omitempty"`
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"` // metres
			Duration float64 `json:"duration"` // seconds
		} `json:"summary"`
		// Geometry is an encoded polyline at precision 5.
		Geometry string `json:"geometry"`
		Segments []struct {
			Steps []struct {
				Distance    float64 `json:"distance"`
				Instruction string  `json:"instruction"`
			} `json:"steps"`
		} `json:"segments"`
	} `json:"routes"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Internal ORS error codes carried in the error body.
const (
	codeInvalidParameter = 2003
	codeRouteNotFound    = 2009
)
