// Package openweathermap provides a client for the OpenWeatherMap Geocoding API.
package openweathermap

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
	ProviderName = "openweathermap"

	// DefaultBaseURL is the OpenWeatherMap Geocoding API base URL.
	DefaultBaseURL = "https://api.openweathermap.org/geo/1.0"

	// registryName keeps geocoding health separate from the air pollution client.
	registryName = "openweathermap-geo"

	searchLimit = 5
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the geocoding client.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient HTTPDoer
	Registry   *resilience.Registry
	Logger     zerolog.Logger
}

// Client is an OpenWeatherMap Geocoding API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OpenWeatherMap geocoding client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(registryName)
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Search queries /direct, scoped to Great Britain.
func (c *Client) Search(ctx context.Context, query string) ([]geocoding.Location, error) {
	q := url.Values{}
	q.Set("q", query+","+geocoding.CountryGB)
	q.Set("limit", strconv.Itoa(searchLimit))

	var places []place
	if err := c.get(ctx, "/direct", q, &places); err != nil {
		return nil, err
	}

	out := make([]geocoding.Location, 0, len(places))
	for _, p := range places {
		out = append(out, p.toLocation())
	}
	return out, nil
}

// Postcode queries /zip.
func (c *Client) Postcode(ctx context.Context, postcode string) (*geocoding.Location, error) {
	q := url.Values{}
	q.Set("zip", postcode+","+geocoding.CountryGB)

	var z zipResponse
	if err := c.get(ctx, "/zip", q, &z); err != nil {
		return nil, err
	}

	return &geocoding.Location{
		Name:        z.Name,
		Country:     z.Country,
		Postcode:    postcode,
		Coordinate:  geo.Coordinate{Lat: z.Lat, Lon: z.Lon},
		DisplayName: geocoding.DisplayName(z.Name, "", z.Country),
	}, nil
}

// Reverse queries /reverse for the single nearest place.
func (c *Client) Reverse(ctx context.Context, coord geo.Coordinate) (*geocoding.Location, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(coord.Lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(coord.Lon, 'f', 6, 64))
	q.Set("limit", "1")

	var places []place
	if err := c.get(ctx, "/reverse", q, &places); err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, geocoding.ErrNotFound
	}

	loc := places[0].toLocation()
	return &loc, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	if !c.Configured() {
		return geocoding.ErrNotConfigured
	}
	q.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return geocoding.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

type place struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state"`
}

func (p place) toLocation() geocoding.Location {
	return geocoding.Location{
		Name:        p.Name,
		Country:     p.Country,
		State:       p.State,
		Coordinate:  geo.Coordinate{Lat: p.Lat, Lon: p.Lon},
		DisplayName: geocoding.DisplayName(p.Name, p.State, p.Country),
	}
}

type zipResponse struct {
	Zip     string  `json:"zip"`
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
}
