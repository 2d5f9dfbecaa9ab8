// Package mapbox provides a client for the Mapbox Places geocoding API.
package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/airwatchuk/airwatch/internal/geocoding"
	"github.com/airwatchuk/airwatch/internal/provider/resilience"
	"github.com/airwatchuk/airwatch/pkg/geo"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "mapbox"

	// DefaultBaseURL is the Mapbox Places endpoint.
	DefaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

	searchTypes  = "place,locality,neighborhood,address"
	reverseTypes = "place,locality,neighborhood"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Mapbox client.
type ClientConfig struct {
	// AccessToken is the Mapbox access token. Without it the client reports itself unconfigured.
	AccessToken string
	BaseURL     string
	HTTPClient  HTTPDoer
	Registry    *resilience.Registry
	Logger      zerolog.Logger
}

// Client is a Mapbox Places API client.
type Client struct {
	token      string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Mapbox client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		token:      cfg.AccessToken,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Configured reports whether an access token is set.
func (c *Client) Configured() bool {
	return c.token != ""
}

// Search looks up places in Great Britain.
func (c *Client) Search(ctx context.Context, query string) ([]geocoding.Location, error) {
	q := url.Values{}
	q.Set("country", geocoding.CountryGB)
	q.Set("limit", "5")
	q.Set("types", searchTypes)

	fc, err := c.places(ctx, query, q)
	if err != nil {
		return nil, err
	}

	out := make([]geocoding.Location, 0, len(fc.Features))
	for _, f := range fc.Features {
		loc := f.toLocation()
		loc.Postcode = geocoding.ExtractPostcode(f.PlaceName)
		out = append(out, loc)
	}
	return out, nil
}

// Postcode resolves a postcode using the postcode feature type.
func (c *Client) Postcode(ctx context.Context, postcode string) (*geocoding.Location, error) {
	q := url.Values{}
	q.Set("country", geocoding.CountryGB)
	q.Set("types", "postcode")

	fc, err := c.places(ctx, postcode, q)
	if err != nil {
		return nil, err
	}
	if len(fc.Features) == 0 {
		return nil, geocoding.ErrNotFound
	}

	loc := fc.Features[0].toLocation()
	loc.State = ""
	loc.Postcode = postcode
	return &loc, nil
}

// Reverse finds the nearest place to coord. The returned coordinate is the
// queried one, not the place centre.
func (c *Client) Reverse(ctx context.Context, coord geo.Coordinate) (*geocoding.Location, error) {
	q := url.Values{}
	q.Set("types", reverseTypes)

	lonLat := strconv.FormatFloat(coord.Lon, 'f', 6, 64) + "," + strconv.FormatFloat(coord.Lat, 'f', 6, 64)
	fc, err := c.places(ctx, lonLat, q)
	if err != nil {
		return nil, err
	}
	if len(fc.Features) == 0 {
		return nil, geocoding.ErrNotFound
	}

	loc := fc.Features[0].toLocation()
	loc.Coordinate = coord
	return &loc, nil
}

func (c *Client) places(ctx context.Context, search string, q url.Values) (*featureCollection, error) {
	if !c.Configured() {
		return nil, geocoding.ErrNotConfigured
	}
	q.Set("access_token", c.token)

	endpoint := c.baseURL + "/" + url.PathEscape(search) + ".json?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	c.logger.Debug().Int("features", len(fc.Features)).Msg("mapbox places lookup")
	return &fc, nil
}

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Text      string `json:"text"`
	PlaceName string `json:"place_name"`
	// Center is [lon, lat].
	Center []float64 `json:"center"`
}

func (f feature) toLocation() geocoding.Location {
	var coord geo.Coordinate
	if len(f.Center) == 2 {
		coord = geo.Coordinate{Lat: f.Center[1], Lon: f.Center[0]}
	}
	return geocoding.Location{
		Name:        f.Text,
		Country:     geocoding.CountryGB,
		State:       geocoding.ExtractRegion(f.PlaceName),
		Coordinate:  coord,
		DisplayName: f.PlaceName,
	}
}
