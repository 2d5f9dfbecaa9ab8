// Package osrm provides a client for the OSRM route service, by default the
// public community server.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
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
	ProviderName = "osrm"

	// DefaultBaseURL is the public OSRM demo server.
	DefaultBaseURL = "https://router.project-osrm.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	codeOK      = "Ok"
	codeNoRoute = "NoRoute"
)

// ClientConfig holds configuration for the OSRM client.
type ClientConfig struct {
	// BaseURL is the server base URL (optional, defaults to the public server).
	BaseURL string

	// Disabled takes the provider out of the chain.
	Disabled bool

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient routing.HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	Logger zerolog.Logger
}

// Client is an OSRM route service client. It needs no credentials.
type Client struct {
	baseURL    string
	disabled   bool
	httpClient routing.HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OSRM client.
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
		baseURL:    baseURL,
		disabled:   cfg.Disabled,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Kind returns routing.KindCommunityAPI.
func (c *Client) Kind() routing.ProviderKind {
	return routing.KindCommunityAPI
}

// Configured reports whether the provider is enabled.
func (c *Client) Configured() bool {
	return !c.disabled
}

// Routes retrieves the main route and any alternatives OSRM offers.
func (c *Client) Routes(ctx context.Context, req routing.Request) ([]routing.Candidate, error) {
	if err := routing.ValidateRequest(ProviderName, req); err != nil {
		return nil, err
	}

	profile := profileFor(req.Vehicle)
	alternatives := req.Alternatives != 1

	// OSRM coordinates are lon,lat pairs separated by ';'.
	endpoint := fmt.Sprintf("%s/route/v1/%s/%s;%s?overview=full&geometries=geojson&alternatives=%t&steps=true",
		c.baseURL, profile, formatPoint(req.Origin), formatPoint(req.Destination), alternatives)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("profile", profile).Msg("requesting routes from OSRM")

	status, body, err := routing.Send(c.httpClient, ProviderName, httpReq)
	if err != nil {
		return nil, err
	}

	var osrmResp routeResponse
	decodeErr := json.Unmarshal(body, &osrmResp)

	// OSRM reports an unroutable pair as 400 with code NoRoute.
	if osrmResp.Code == codeNoRoute {
		return nil, &routing.Error{Provider: ProviderName, Code: "NO_ROUTE", Message: osrmResp.Message, Err: routing.ErrNoRouteFound}
	}
	if status != http.StatusOK {
		return nil, routing.StatusError(ProviderName, status, osrmResp.Message)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decoding response: %w", decodeErr)
	}
	if osrmResp.Code != codeOK {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     strings.ToUpper(osrmResp.Code),
			Message:  osrmResp.Message,
			Err:      routing.ErrProviderUnavailable,
		}
	}

	candidates := toCandidates(&osrmResp)

	c.logger.Debug().Int("route_count", len(candidates)).Msg("received routes from OSRM")

	return candidates, nil
}

func toCandidates(resp *routeResponse) []routing.Candidate {
	candidates := make([]routing.Candidate, 0, len(resp.Routes))

	for i := range resp.Routes {
		r := &resp.Routes[i]

		path := make([]geo.Coordinate, 0, len(r.Geometry.Coordinates))
		for _, pt := range r.Geometry.Coordinates {
			if len(pt) < 2 {
				continue
			}
			path = append(path, geo.Coordinate{Lat: pt[1], Lon: pt[0]})
		}

		var instructions []routing.Instruction
		if len(r.Legs) > 0 {
			var offset float64
			for _, step := range r.Legs[0].Steps {
				text := step.Maneuver.Instruction
				if text == "" {
					text = describeStep(step)
				}
				instructions = append(instructions, routing.Instruction{Text: text, DistanceOffsetMeters: offset})
				offset += step.Distance
			}
		}

		candidates = append(candidates, routing.Candidate{
			ID:              fmt.Sprintf("osrm_%d", i),
			Name:            fmt.Sprintf("OSRM route %d", i+1),
			Path:            path,
			DistanceMeters:  r.Distance,
			DurationSeconds: r.Duration,
			Provider:        routing.KindCommunityAPI,
			ProviderName:    ProviderName,
			Instructions:    instructions,
		})
	}

	return candidates
}

// describeStep builds text for servers that omit maneuver instructions.
func describeStep(s step) string {
	switch s.Maneuver.Type {
	case "depart":
		if s.Name != "" {
			return "Head out on " + s.Name
		}
		return "Depart"
	case "arrive":
		return "Arrive at destination"
	}
	if s.Name != "" {
		return "Continue on " + s.Name
	}
	return "Continue"
}

func formatPoint(c geo.Coordinate) string {
	return strconv.FormatFloat(c.Lon, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lat, 'f', 6, 64)
}

func profileFor(v routing.Vehicle) string {
	switch v {
	case routing.VehicleBike:
		return "cycling"
	case routing.VehicleFoot:
		return "walking"
	default:
		return "driving"
	}
}

type routeResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Type        string      `json:"type"`
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Legs []struct {
			Steps []step `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

type step struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Name     string  `json:"name"`
	Maneuver struct {
		Type        string `json:"type"`
		Modifier    string `json:"modifier"`
		Instruction string `json:"instruction"`
	} `json:"maneuver"`
}
