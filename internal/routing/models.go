// Package routing acquires candidate routes from external routing providers,
// falling back to synthetic paths when none of them answer.
package routing

import (
	"context"
	"errors"
	"strings"

	"github.com/airwatchuk/airwatch/pkg/geo"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no valid route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrNotConfigured indicates the provider has no credentials.
	ErrNotConfigured = errors.New("routing provider not configured")
	// ErrNoRoutes is returned when every provider, including the fallback, produced nothing.
	ErrNoRoutes = errors.New("no routes available from any provider")
)

// Provider is implemented by every source of candidate routes.
type Provider interface {
	// Name returns the provider identifier for logging and metrics.
	Name() string
	// Kind reports which tier of the preference order the provider belongs to.
	Kind() ProviderKind
	// Configured reports whether the provider has what it needs to make calls.
	// Unconfigured providers are skipped without a network call.
	Configured() bool
	// Routes returns candidate routes in the provider's own order.
	Routes(ctx context.Context, req Request) ([]Candidate, error)
}

// ProviderKind classifies a provider by its place in the fallback order.
type ProviderKind string

const (
	KindPrimaryAPI   ProviderKind = "PrimaryAPI"
	KindSecondaryAPI ProviderKind = "SecondaryAPI"
	KindCommunityAPI ProviderKind = "CommunityAPI"
	KindSynthetic    ProviderKind = "Synthetic"
)

// Vehicle is the travel mode a route is computed for.
type Vehicle string

const (
	VehicleCar  Vehicle = "car"
	VehicleBike Vehicle = "bike"
	VehicleFoot Vehicle = "foot"
)

// ParseVehicle maps user input to a Vehicle. Unknown or empty values map to car.
func ParseVehicle(s string) Vehicle {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bike", "bicycle", "cycling":
		return VehicleBike
	case "foot", "walk", "walking":
		return VehicleFoot
	default:
		return VehicleCar
	}
}

// Archetype names the shape of a synthetic route.
type Archetype string

const (
	ArchetypeDirect  Archetype = "direct"
	ArchetypeScenic  Archetype = "scenic"
	ArchetypeHighway Archetype = "highway"
)

// Request describes the route being asked for.
type Request struct {
	Origin      geo.Coordinate
	Destination geo.Coordinate
	Vehicle     Vehicle
	// Alternatives is how many routes to ask a provider for, including the main one.
	Alternatives int
}

// Instruction is one advisory turn instruction.
type Instruction struct {
	Text                 string  `json:"text"`
	DistanceOffsetMeters float64 `json:"distanceOffsetMeters"`
}

// Candidate is a route produced by a provider, before exposure enrichment.
type Candidate struct {
	ID              string
	Name            string
	Path            []geo.Coordinate
	DistanceMeters  float64
	DurationSeconds float64
	Provider        ProviderKind
	ProviderName    string
	Instructions    []Instruction
	// Archetype is only set for synthetic routes.
	Archetype Archetype
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}

// ValidateRequest checks both endpoints and returns a provider-tagged error for the first bad one.
func ValidateRequest(provider string, req Request) error {
	if err := req.Origin.Validate(); err != nil {
		return &Error{
			Provider: provider,
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}
	if err := req.Destination.Validate(); err != nil {
		return &Error{
			Provider: provider,
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}
	return nil
}

// StatusError maps an unsuccessful HTTP status to a routing error.
// Providers that return richer error bodies pass the decoded message in msg.
func StatusError(provider string, status int, msg string) *Error {
	switch {
	case status == 429:
		return &Error{Provider: provider, Code: "RATE_LIMIT", Message: "API rate limit exceeded", Err: ErrRateLimitExceeded}
	case status == 401 || status == 403:
		return &Error{Provider: provider, Code: "FORBIDDEN", Message: "API access denied, check API key configuration", Err: ErrProviderUnavailable}
	case status == 404:
		return &Error{Provider: provider, Code: "NO_ROUTE", Message: "no route found between the given points", Err: ErrNoRouteFound}
	case status >= 500:
		return &Error{Provider: provider, Code: "SERVER_ERROR", Message: "routing provider is temporarily unavailable", Err: ErrProviderUnavailable}
	}
	if msg == "" {
		msg = "routing provider rejected the request"
	}
	return &Error{Provider: provider, Code: "BAD_REQUEST", Message: msg, Err: ErrProviderUnavailable}
}
