// Package openweathermap provides a client for the OpenWeatherMap Air Pollution API.
package openweathermap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwatchuk/airwatch/internal/airquality"
	"github.com/airwatchuk/airwatch/internal/provider/resilience"
	"github.com/airwatchuk/airwatch/pkg/geo"
)

const (
	// ProviderName identifies this air quality provider.
	ProviderName = "openweathermap"

	// DefaultBaseURL is the OpenWeatherMap API base URL.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	// APIKey is the OpenWeatherMap API key. Without it the client reports itself unconfigured.
	APIKey string

	// BaseURL is the API base URL (optional, defaults to OpenWeatherMap API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenWeatherMap Air Pollution API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OpenWeatherMap client.
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

// Current fetches the current air pollution reading for a location.
func (c *Client) Current(ctx context.Context, coord geo.Coordinate) (*airquality.Reading, error) {
	var resp pollutionResponse
	if err := c.get(ctx, "/air_pollution", coord, &resp); err != nil {
		return nil, err
	}
	if len(resp.List) == 0 {
		return nil, airquality.ErrNoMeasurements
	}

	item := resp.List[0]
	return airquality.NewReading(coord, time.Unix(item.Dt, 0), item.Main.AQI, item.Components), nil
}

// Forecast fetches the hourly air pollution forecast for a location.
func (c *Client) Forecast(ctx context.Context, coord geo.Coordinate) (*airquality.Forecast, error) {
	var resp pollutionResponse
	if err := c.get(ctx, "/air_pollution/forecast", coord, &resp); err != nil {
		return nil, err
	}

	forecast := &airquality.Forecast{
		Coordinate: coord,
		Items:      make([]airquality.Reading, 0, len(resp.List)),
	}
	for _, item := range resp.List {
		forecast.Items = append(forecast.Items, *airquality.NewReading(coord, time.Unix(item.Dt, 0), item.Main.AQI, item.Components))
	}
	return forecast, nil
}

func (c *Client) get(ctx context.Context, path string, coord geo.Coordinate, out interface{}) error {
	if !c.Configured() {
		return airquality.ErrNotConfigured
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(coord.Lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(coord.Lon, 'f', 6, 64))
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

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	c.logger.Debug().Str("path", path).Msg("fetched air pollution data")
	return nil
}

// OpenWeatherMap API response structures.

type pollutionResponse struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
		Components map[string]float64 `json:"components"`
	} `json:"list"`
}
