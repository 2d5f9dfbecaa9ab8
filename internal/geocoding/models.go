// Package geocoding resolves UK place names, postcodes and coordinates using a
// primary provider with a fallback.
package geocoding

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/airwatchuk/airwatch/pkg/geo"
)

// Sentinel errors for geocoding operations.
var (
	// ErrNotFound indicates no provider could resolve the input.
	ErrNotFound = errors.New("location not found")
	// ErrNotConfigured indicates the provider has no credentials.
	ErrNotConfigured = errors.New("geocoding provider not configured")
	// ErrEmptyQuery indicates a blank search query or postcode.
	ErrEmptyQuery = errors.New("query is required")
	// ErrInvalidCoordinates indicates a reverse lookup outside WGS84 ranges.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// SourceNone is reported when no provider produced results.
const SourceNone = "none"

// CountryGB restricts every lookup to the United Kingdom.
const CountryGB = "GB"

// Provider is implemented by every geocoding backend.
type Provider interface {
	Name() string
	Configured() bool
	// Search returns up to five matches for a free-text query.
	Search(ctx context.Context, query string) ([]Location, error)
	// Postcode resolves a normalised UK postcode.
	Postcode(ctx context.Context, postcode string) (*Location, error)
	// Reverse finds the nearest named place to coord.
	Reverse(ctx context.Context, coord geo.Coordinate) (*Location, error)
}

// Location is a resolved place.
type Location struct {
	Name        string         `json:"name"`
	Country     string         `json:"country"`
	State       string         `json:"state,omitempty"`
	Postcode    string         `json:"postcode,omitempty"`
	Coordinate  geo.Coordinate `json:"coordinate"`
	DisplayName string         `json:"displayName,omitempty"`
}

// SearchResult is the outcome of a free-text search.
type SearchResult struct {
	Results []Location `json:"results"`
	Source  string     `json:"source"`
}

var (
	whitespace    = regexp.MustCompile(`\s+`)
	postcodeRegex = regexp.MustCompile(`(?i)[A-Z]{1,2}\d[A-Z\d]?\s?\d[A-Z]{2}`)
)

// NormalizePostcode collapses whitespace and upper-cases a postcode.
func NormalizePostcode(postcode string) string {
	return strings.ToUpper(strings.TrimSpace(whitespace.ReplaceAllString(postcode, " ")))
}

// ExtractPostcode returns the first UK postcode in a place name, or "".
func ExtractPostcode(placeName string) string {
	return postcodeRegex.FindString(placeName)
}

// ExtractRegion returns the county or region part of a comma separated place
// name. It needs at least three parts and takes the second to last.
func ExtractRegion(placeName string) string {
	parts := strings.Split(placeName, ",")
	if len(parts) < 3 {
		return ""
	}
	return strings.TrimSpace(parts[len(parts)-2])
}

// DisplayName formats "name, state, country", leaving out an empty state.
func DisplayName(name, state, country string) string {
	if state == "" {
		return name + ", " + country
	}
	return name + ", " + state + ", " + country
}
