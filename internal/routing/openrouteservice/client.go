// Package openrouteservice adapts the OpenRouteService directions API to
// routing.Provider. It is the secondary routing source behind GraphHopper.
package openrouteservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwatchuk/airwatch/internal/provider/resilience"
	"github.com/airwatchuk/airwatch/internal/routing"
	"github.com/airwatchuk/airwatch/pkg/polyline"
)

const (
	ProviderName   = "openrouteservice"
	DefaultBaseURL = "https://api.openrouteservice.org"
	DefaultTimeout = 10 * time.Second

	// DefaultAlternatives is requested when the caller leaves it unset.
	// ORS computes at most three routes per request.
	DefaultAlternatives = 3
	maxAlternatives     = 3

	weightFactor = 1.4
	shareFactor  = 0.6
)

// ClientConfig configures the ORS client. Without an APIKey the client
// reports itself unconfigured and is skipped by the acquirer.
type ClientConfig struct {
	APIKey  string
	BaseURL string

	// HTTPClient defaults to a resilience.Client named ProviderName.
	HTTPClient routing.HTTPDoer
	Timeout    time.Duration
	Registry   *resilience.Registry
	Logger     zerolog.Logger
}

// Client is an OpenRouteService directions client.
type Client struct {
	apiKey  string
	baseURL string
	http    routing.HTTPDoer
	log     zerolog.Logger
}

// NewClient builds a Client, filling unset config with defaults.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    cfg.HTTPClient,
		log:     cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		rc := resilience.DefaultClientConfig(ProviderName)
		if cfg.Timeout > 0 {
			rc.Timeout = cfg.Timeout
		} else {
			rc.Timeout = DefaultTimeout
		}
		rc.Registry = cfg.Registry
		rc.Logger = cfg.Logger
		c.http = resilience.NewClient(rc)
	}
	return c
}

func (c *Client) Name() string               { return ProviderName }
func (c *Client) Kind() routing.ProviderKind { return routing.KindSecondaryAPI }
func (c *Client) Configured() bool           { return c.apiKey != "" }

// Routes asks ORS for up to req.Alternatives routes between the endpoints.
func (c *Client) Routes(ctx context.Context, req routing.Request) ([]routing.Candidate, error) {
	if !c.Configured() {
		return nil, &routing.Error{Provider: ProviderName, Code: "NOT_CONFIGURED", Message: "no API key", Err: routing.ErrNotConfigured}
	}
	if err := routing.ValidateRequest(ProviderName, req); err != nil {
		return nil, err
	}

	profile := profileFor(req.Vehicle)
	httpReq, err := c.newRequest(ctx, profile, buildRequest(req))
	if err != nil {
		return nil, err
	}

	c.log.Debug().Str("profile", profile).Msg("requesting directions")

	status, body, err := routing.Send(c.http, ProviderName, httpReq)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, mapError(status, body)
	}

	var resp directionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", ProviderName, err)
	}

	candidates := c.toCandidates(&resp)
	c.log.Debug().Int("route_count", len(candidates)).Msg("received directions")
	return candidates, nil
}

func buildRequest(req routing.Request) directionsRequest {
	n := req.Alternatives
	if n <= 0 {
		n = DefaultAlternatives
	}
	n = min(n, maxAlternatives)

	body := directionsRequest{
		Coordinates: [][2]float64{
			{req.Origin.Lon, req.Origin.Lat},
			{req.Destination.Lon, req.Destination.Lat},
		},
		Instructions: true,
		Units:        "m",
		Language:     "en",
	}
	if n > 1 {
		body.Alternatives = &alternatives{TargetCount: n, WeightFactor: weightFactor, ShareFactor: shareFactor}
	}
	return body
}

func (c *Client) newRequest(ctx context.Context, profile string, body directionsRequest) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", ProviderName, err)
	}
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/directions/"+profile, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", ProviderName, err)
	}
	r.Header.Set("Authorization", c.apiKey)
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json, application/geo+json")
	return r, nil
}

// mapError turns an ORS error body into a routing error. ORS reports an
// unroutable pair as 400 or 404 with code 2009.
func mapError(status int, body []byte) error {
	var e errorResponse
	if json.Unmarshal(body, &e) != nil {
		return routing.StatusError(ProviderName, status, "")
	}
	switch {
	case e.Error.Code == codeRouteNotFound:
		return &routing.Error{Provider: ProviderName, Code: "NO_ROUTE", Message: e.Error.Message, Err: routing.ErrNoRouteFound}
	case status == http.StatusBadRequest && e.Error.Code == codeInvalidParameter:
		return &routing.Error{Provider: ProviderName, Code: "BAD_REQUEST", Message: e.Error.Message, Err: routing.ErrInvalidCoordinates}
	default:
		return routing.StatusError(ProviderName, status, e.Error.Message)
	}
}

func (c *Client) toCandidates(resp *directionsResponse) []routing.Candidate {
	out := make([]routing.Candidate, 0, len(resp.Routes))
	for i, r := range resp.Routes {
		path := polyline.Decode(r.Geometry)
		if len(path) < 2 {
			c.log.Warn().Int("route_index", i).Msg("skipping route with unusable geometry")
			continue
		}

		var (
			steps  []routing.Instruction
			offset float64
		)
		for _, seg := range r.Segments {
			for _, s := range seg.Steps {
				steps = append(steps, routing.Instruction{Text: s.Instruction, DistanceOffsetMeters: offset})
				offset += s.Distance
			}
		}

		out = append(out, routing.Candidate{
			ID:              fmt.Sprintf("ors_%d", i),
			Name:            fmt.Sprintf("OpenRouteService route %d", i+1),
			Path:            path,
			DistanceMeters:  r.Summary.Distance,
			DurationSeconds: r.Summary.Duration,
			Provider:        routing.KindSecondaryAPI,
			ProviderName:    ProviderName,
			Instructions:    steps,
		})
	}
	return out
}

func profileFor(v routing.Vehicle) string {
	switch v {
	case routing.VehicleBike:
		return "cycling-regular"
	case routing.VehicleFoot:
		return "foot-walking"
	default:
		return "driving-car"
	}
}
