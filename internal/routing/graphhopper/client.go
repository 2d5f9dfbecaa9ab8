// Package graphhopper provides a client for the GraphHopper routing API.
package graphhopper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwatchuk/airwatch/internal/provider/resilience"
	"github.com/airwatchuk/airwatch/internal/routing"
	"github.com/airwatchuk/airwatch/pkg/geo"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "graphhopper"

	// DefaultBaseURL is the GraphHopper API base URL.
	DefaultBaseURL = "https://graphhopper.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultAlternatives is requested when the caller does not say.
	DefaultAlternatives = 3
)

// ClientConfig holds configuration for the GraphHopper client.
type ClientConfig struct {
	// APIKey is the GraphHopper key. Without it the client reports itself unconfigured.
	APIKey string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient routing.HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a GraphHopper API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient routing.HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new GraphHopper client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
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

// Kind returns routing.KindPrimaryAPI.
func (c *Client) Kind() routing.ProviderKind {
	return routing.KindPrimaryAPI
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Routes retrieves the main route and its alternatives between two points.
func (c *Client) Routes(ctx context.Context, req routing.Request) ([]routing.Candidate, error) {
	if !c.Configured() {
		return nil, &routing.Error{Provider: ProviderName, Code: "NOT_CONFIGURED", Message: "no API key", Err: routing.ErrNotConfigured}
	}
	if err := routing.ValidateRequest(ProviderName, req); err != nil {
		return nil, err
	}

	maxPaths := req.Alternatives
	if maxPaths <= 0 {
		maxPaths = DefaultAlternatives
	}

	profile := profileFor(req.Vehicle)

	q := url.Values{}
	q.Add("point", formatPoint(req.Origin))
	q.Add("point", formatPoint(req.Destination))
	q.Set("profile", profile)
	q.Set("vehicle", profile)
	q.Set("locale", "en")
	q.Set("instructions", "true")
	q.Set("calc_points", "true")
	q.Set("points_encoded", "false")
	if maxPaths > 1 {
		q.Set("algorithm", "alternative_route")
		q.Set("alternative_route.max_paths", strconv.Itoa(maxPaths))
	}
	q.Set("key", c.apiKey)

	endpoint := c.baseURL + "/api/1/route?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("profile", profile).
		Int("max_paths", maxPaths).
		Msg("requesting routes from GraphHopper")

	status, body, err := routing.Send(c.httpClient, ProviderName, httpReq)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		var ghErr errorResponse
		_ = json.Unmarshal(body, &ghErr)
		if status == http.StatusBadRequest && isNoRouteMessage(ghErr.Message) {
			return nil, &routing.Error{Provider: ProviderName, Code: "NO_ROUTE", Message: ghErr.Message, Err: routing.ErrNoRouteFound}
		}
		return nil, routing.StatusError(ProviderName, status, ghErr.Message)
	}

	var ghResp routeResponse
	if err := json.Unmarshal(body, &ghResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	candidates := toCandidates(&ghResp)

	c.logger.Debug().
		Int("route_count", len(candidates)).
		Msg("received routes from GraphHopper")

	return candidates, nil
}

func toCandidates(resp *routeResponse) []routing.Candidate {
	candidates := make([]routing.Candidate, 0, len(resp.Paths))

	for i := range resp.Paths {
		p := &resp.Paths[i]

		path := make([]geo.Coordinate, 0, len(p.Points.Coordinates))
		for _, pt := range p.Points.Coordinates {
			if len(pt) < 2 {
				continue
			}
			// GeoJSON order: [lon, lat, (ele)]
			path = append(path, geo.Coordinate{Lat: pt[1], Lon: pt[0]})
		}

		instructions := make([]routing.Instruction, 0, len(p.Instructions))
		var offset float64
		for _, in := range p.Instructions {
			instructions = append(instructions, routing.Instruction{Text: in.Text, DistanceOffsetMeters: offset})
			offset += in.Distance
		}

		candidates = append(candidates, routing.Candidate{
			ID:              fmt.Sprintf("gh_%d", i),
			Name:            fmt.Sprintf("GraphHopper route %d", i+1),
			Path:            path,
			DistanceMeters:  p.Distance,
			DurationSeconds: p.Time / 1000,
			Provider:        routing.KindPrimaryAPI,
			ProviderName:    ProviderName,
			Instructions:    instructions,
		})
	}

	return candidates
}

func formatPoint(c geo.Coordinate) string {
	return strconv.FormatFloat(c.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lon, 'f', 6, 64)
}

func isNoRouteMessage(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "cannot find point") || strings.Contains(m, "connection between locations not found")
}

func profileFor(v routing.Vehicle) string {
	switch v {
	case routing.VehicleBike:
		return "bike"
	case routing.VehicleFoot:
		return "foot"
	default:
		return "car"
	}
}

type routeResponse struct {
	Paths []struct {
		Distance float64 `json:"distance"` // metres
		Time     float64 `json:"time"`     // milliseconds
		Points   struct {
			Type        string      `json:"type"`
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"points"`
		Instructions []struct {
			Text     string  `json:"text"`
			Distance float64 `json:"distance"`
			Time     float64 `json:"time"`
			Sign     int     `json:"sign"`
		} `json:"instructions"`
	} `json:"paths"`
}

type errorResponse struct {
	Message string `json:"message"`
}
