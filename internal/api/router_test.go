package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwatchuk/airwatch/internal/airquality"
	"github.com/airwatchuk/airwatch/internal/api"
	"github.com/airwatchuk/airwatch/internal/api/handler"
	"github.com/airwatchuk/airwatch/internal/api/models"
	"github.com/airwatchuk/airwatch/internal/cleanroute"
	"github.com/airwatchuk/airwatch/internal/exposure"
	"github.com/airwatchuk/airwatch/internal/geocoding"
	"github.com/airwatchuk/airwatch/internal/provider/resilience"
	"github.com/airwatchuk/airwatch/internal/random"
	"github.com/airwatchuk/airwatch/internal/routing"
	"github.com/airwatchuk/airwatch/internal/routing/synthetic"
	"github.com/airwatchuk/airwatch/pkg/geo"
	"github.com/airwatchuk/airwatch/pkg/polyline"
)

// constantSource reports the same exposure everywhere.
type constantSource float64

func (c constantSource) Exposure(context.Context, geo.Coordinate) (float64, error) {
	return float64(c), nil
}

// fakeAirQuality serves fixed readings.
type fakeAirQuality struct {
	err error
}

func (f *fakeAirQuality) reading(coord geo.Coordinate) *airquality.Reading {
	return airquality.NewReading(coord, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), 2, airquality.Components{
		airquality.ComponentPM25: 8.5,
		airquality.ComponentNO2:  21,
	})
}

func (f *fakeAirQuality) Current(_ context.Context, coord geo.Coordinate) (*airquality.Reading, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.reading(coord), nil
}

func (f *fakeAirQuality) Forecast(_ context.Context, coord geo.Coordinate) (*airquality.Forecast, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &airquality.Forecast{Coordinate: coord, Items: []airquality.Reading{*f.reading(coord)}}, nil
}

func (f *fakeAirQuality) Historical(_ context.Context, coord geo.Coordinate, start, end time.Time) (*airquality.History, error) {
	h := &airquality.History{Coordinate: coord, Items: []airquality.Reading{}}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return h, nil
	}
	h.Items = append(h.Items, *f.reading(coord))
	return h, nil
}

func (f *fakeAirQuality) Regions(context.Context) ([]airquality.RegionReading, error) {
	london := airquality.Region{Name: "London", Coordinate: geo.Coordinate{Lat: 51.5074, Lon: -0.1278}}
	return []airquality.RegionReading{{Region: london, Reading: f.reading(london.Coordinate)}}, nil
}

func (f *fakeAirQuality) Rankings(ctx context.Context, pollutant string) (*airquality.Rankings, error) {
	if pollutant == "" {
		pollutant = airquality.PollutantAQI
	}
	if !airquality.RankablePollutant(pollutant) {
		return nil, fmt.Errorf("%w: %q", airquality.ErrUnknownPollutant, pollutant)
	}
	regions, _ := f.Regions(ctx)
	return airquality.Rank(regions, pollutant), nil
}

// fakeGeocoding resolves a single postcode and place.
type fakeGeocoding struct{}

var westminster = geocoding.Location{
	Name:       "Westminster",
	Country:    geocoding.CountryGB,
	Postcode:   "SW1A 1AA",
	Coordinate: geo.Coordinate{Lat: 51.501, Lon: -0.1416},
}

func (fakeGeocoding) Search(_ context.Context, query string) (*geocoding.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, geocoding.ErrEmptyQuery
	}
	if strings.EqualFold(query, "westminster") {
		return &geocoding.SearchResult{Results: []geocoding.Location{westminster}, Source: "fake"}, nil
	}
	return &geocoding.SearchResult{Results: []geocoding.Location{}, Source: geocoding.SourceNone}, nil
}

func (fakeGeocoding) Postcode(_ context.Context, postcode string) (*geocoding.Location, error) {
	if geocoding.NormalizePostcode(postcode) == "SW1A 1AA" {
		loc := westminster
		return &loc, nil
	}
	return nil, fmt.Errorf("postcode %s: %w", postcode, geocoding.ErrNotFound)
}

func (fakeGeocoding) Reverse(_ context.Context, coord geo.Coordinate) (*geocoding.Location, error) {
	loc := westminster
	loc.Coordinate = coord
	return &loc, nil
}

func (fakeGeocoding) Providers() map[string]bool {
	return map[string]bool{"fake": true}
}

// failingCalculator fails every calculation the way cleanroute.Service does.
type failingCalculator struct{ err error }

func (f failingCalculator) CalculateCleanRoutes(context.Context, geo.Coordinate, geo.Coordinate, cleanroute.Options) (*cleanroute.Result, error) {
	return &cleanroute.Result{Success: false, Error: f.err.Error()}, f.err
}

type testDeps struct {
	routes     handler.RouteCalculator
	airQuality *fakeAirQuality
	registry   *resilience.Registry
	checks     map[string]handler.ReadinessCheck
}

func newTestRouter(t *testing.T, opts ...func(*testDeps)) http.Handler {
	t.Helper()

	deps := &testDeps{airQuality: &fakeAirQuality{}, registry: resilience.NewRegistry()}
	for _, opt := range opts {
		opt(deps)
	}

	logger := zerolog.New(io.Discard)
	acquirer := routing.NewAcquirer(routing.AcquirerConfig{
		Fallback: synthetic.New(synthetic.Config{Rand: random.NewSeeded(1), Logger: logger}),
		Logger:   logger,
	})
	enricher := exposure.NewEnricher(exposure.Config{
		Source: constantSource(40),
		Rand:   random.NewSeeded(2),
		Logger: logger,
	})

	routes := deps.routes
	if routes == nil {
		routes = cleanroute.NewService(cleanroute.ServiceConfig{Acquirer: acquirer, Enricher: enricher, Logger: logger})
	}

	return api.NewRouter(api.RouterConfig{
		Logger:             logger,
		CleanRoutes:        routes,
		RoutingProviders:   acquirer,
		AirQuality:         deps.airQuality,
		AirQualityCacheTTL: 5 * time.Minute,
		Geocoding:          fakeGeocoding{},
		Ops: handler.OpsConfig{
			Version:   "test",
			BuildTime: "2026-01-01T00:00:00Z",
			Registry:  deps.registry,
			Checks:    deps.checks,
		},
	})
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader = http.NoBody
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const londonToManchester = `{
	"origin": {"lat": 51.5074, "lon": -0.1278},
	"destination": {"lat": 53.4808, "lon": -2.2426},
	"options": {"vehicle": "car"}
}`

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodGet, "/v1/ops/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestRouter_ReadinessCheck(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		router := newTestRouter(t, func(d *testDeps) {
			d.checks = map[string]handler.ReadinessCheck{"cache": func(context.Context) error { return nil }}
		})

		w := serve(router, http.MethodGet, "/v1/ops/ready", "")

		assert.Equal(t, http.StatusOK, w.Code)
		var health models.Health
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
		assert.Equal(t, models.HealthStatusOK, health.Status)
		assert.Equal(t, "ok", health.Details["cache"])
	})

	t.Run("failing check returns 503", func(t *testing.T) {
		router := newTestRouter(t, func(d *testDeps) {
			d.checks = map[string]handler.ReadinessCheck{"cache": func(context.Context) error { return errors.New("connection refused") }}
		})

		w := serve(router, http.MethodGet, "/v1/ops/ready", "")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var health models.Health
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
		assert.Equal(t, models.HealthStatusFail, health.Status)
		assert.Equal(t, "connection refused", health.Details["cache"])
	})
}

func TestRouter_SystemStatus(t *testing.T) {
	router := newTestRouter(t, func(d *testDeps) {
		d.registry.Register("graphhopper", resilience.NewClient(resilience.DefaultClientConfig("graphhopper")))
		d.registry.Register("openweathermap", resilience.NewClient(resilience.DefaultClientConfig("openweathermap")))
		d.registry.RecordSuccess("graphhopper")
		d.registry.RecordFailure("openweathermap", errors.New("unexpected status code: 500"))
	})

	w := serve(router, http.MethodGet, "/v1/ops/status", "")

	assert.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))

	assert.Equal(t, models.HealthStatusDegraded, status.Status)
	require.Len(t, status.Providers, 2)
	assert.Equal(t, "graphhopper", status.Providers[0].Provider)
	assert.Equal(t, models.HealthStatusOK, status.Providers[0].Status)
	assert.NotNil(t, status.Providers[0].LastSuccessAt)
	assert.Equal(t, "openweathermap", status.Providers[1].Provider)
	assert.Equal(t, models.HealthStatusDegraded, status.Providers[1].Status)
	assert.Equal(t, "unexpected status code: 500", status.Providers[1].Message)
}

func TestRouter_CalculateRoutes(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodPost, "/v1/routing/calculate-routes", londonToManchester)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.RouteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	require.Len(t, resp.Routes, 3)
	assert.Equal(t, 3, resp.TotalRoutes)
	require.NotNil(t, resp.CleanestRoute)
	assert.Equal(t, resp.Routes[0].ID, resp.CleanestRoute.ID)

	for i, rt := range resp.Routes {
		assert.Equal(t, string(routing.KindSynthetic), rt.Provider)
		assert.NotEmpty(t, rt.Coordinates)
		// Coordinates are [lon, lat].
		assert.InDelta(t, -0.1278, rt.Coordinates[0][0], 1e-9)
		assert.InDelta(t, 51.5074, rt.Coordinates[0][1], 1e-9)
		path := polyline.Decode(rt.Polyline)
		require.Len(t, path, len(rt.Coordinates))
		assert.InDelta(t, 51.5074, path[0].Lat, 1e-5)
		assert.InDelta(t, -0.1278, path[0].Lon, 1e-5)
		assert.InDelta(t, 40, rt.PollutionScore, 1e-9)
		assert.Equal(t, string(exposure.RiskLow), rt.HealthRisk)
		if i > 0 {
			assert.LessOrEqual(t, resp.Routes[i-1].HealthScore, rt.HealthScore)
		}
	}
}

func TestRouter_CalculateRoutes_ValidationError(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantField   string
		wantMessage string
	}{
		{name: "missing origin", body: `{"destination": {"lat": 53.48, "lon": -2.24}}`, wantField: "origin"},
		{name: "missing lon", body: `{"origin": {"lat": 51.5}, "destination": {"lat": 53.48, "lon": -2.24}}`, wantField: "origin.lon"},
		{name: "latitude out of range", body: `{"origin": {"lat": 91, "lon": 0}, "destination": {"lat": 53.48, "lon": -2.24}}`, wantField: "origin.lat"},
		{name: "too many alternatives", body: `{"origin": {"lat": 51.5, "lon": 0}, "destination": {"lat": 53.48, "lon": -2.24}, "options": {"maxAlternatives": 50}}`, wantField: "options.maxAlternatives", wantMessage: "must be between 0 and 10 (0 = default)"},
		{name: "negative threshold", body: `{"origin": {"lat": 51.5, "lon": 0}, "destination": {"lat": 53.48, "lon": -2.24}, "options": {"pollutionThreshold": -1}}`, wantField: "options.pollutionThreshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t)

			w := serve(router, http.MethodPost, "/v1/routing/calculate-routes", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

			var problem models.Problem
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
			assert.Equal(t, models.ProblemTypeValidation, problem.Type)
			require.NotEmpty(t, problem.Errors)
			assert.Equal(t, tt.wantField, problem.Errors[0].Field)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, problem.Errors[0].Message)
			}
		})
	}
}

func TestRouter_CalculateRoutes_ZeroThreshold(t *testing.T) {
	router := newTestRouter(t)

	body := `{
		"origin": {"lat": 51.5074, "lon": -0.1278},
		"destination": {"lat": 53.4808, "lon": -2.2426},
		"options": {"pollutionThreshold": 0}
	}`
	w := serve(router, http.MethodPost, "/v1/routing/calculate-routes", body)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.RouteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Routes)
	for _, rt := range resp.Routes {
		// Every sample reads 40, above a zero threshold.
		assert.Equal(t, rt.SampledPoints, rt.HighExposureSegmentCount)
	}
}

func TestRouter_CalculateRoutes_TotalFailure(t *testing.T) {
	router := newTestRouter(t, func(d *testDeps) {
		d.routes = failingCalculator{err: errors.New("all routing providers failed")}
	})

	w := serve(router, http.MethodPost, "/v1/routing/calculate-routes", londonToManchester)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":false,"error":"all routing providers failed"}`, w.Body.String())
}

func TestRouter_CalculateRoutes_InvalidJSON(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodPost, "/v1/routing/calculate-routes", `{"origin":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid JSON body")
}

func TestRouter_CalculateRoutesGeoJSON(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodPost, "/v1/routing/calculate-routes.geojson", londonToManchester)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/geo+json", w.Header().Get("Content-Type"))

	var fc struct {
		Type     string    `json:"type"`
		BBox     []float64 `json:"bbox"`
		Features []struct {
			ID       string `json:"id"`
			Geometry struct {
				Type        string       `json:"type"`
				Coordinates [][2]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))

	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.BBox, 4)
	require.Len(t, fc.Features, 3)
	for i, f := range fc.Features {
		assert.Equal(t, "LineString", f.Geometry.Type)
		assert.NotEmpty(t, f.ID)
		assert.EqualValues(t, i+1, f.Properties["rank"])
		assert.Equal(t, i == 0, f.Properties["cleanest"])
	}
	last := fc.Features[0].Geometry.Coordinates[len(fc.Features[0].Geometry.Coordinates)-1]
	assert.InDelta(t, -2.2426, last[0], 1e-9)
	assert.InDelta(t, 53.4808, last[1], 1e-9)
}

func TestRouter_ListRoutingProviders(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodGet, "/v1/routing/providers", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.RoutingProvidersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Providers, 1)
	assert.Equal(t, string(routing.KindSynthetic), resp.Providers[0].Kind)
	assert.True(t, resp.Providers[0].Configured)
}

func TestRouter_AirQualityCurrent(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodGet, "/v1/air-quality/current/51.5074/-0.1278", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=300", w.Header().Get("Cache-Control"))

	var reading airquality.Reading
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reading))
	assert.Equal(t, 2, reading.AQI)
	assert.Equal(t, "Fair", reading.AQIDescription)
	assert.InDelta(t, 51.5074, reading.Coordinate.Lat, 1e-9)
}

func TestRouter_AirQualityErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		target     string
		wantStatus int
	}{
		{name: "bad latitude", target: "/v1/air-quality/current/north/-0.12", wantStatus: http.StatusBadRequest},
		{name: "out of range", target: "/v1/air-quality/forecast/95/-0.12", wantStatus: http.StatusBadRequest},
		{name: "not configured", err: airquality.ErrNotConfigured, target: "/v1/air-quality/current/51.5/-0.12", wantStatus: http.StatusServiceUnavailable},
		{name: "upstream failure", err: fmt.Errorf("%w: timeout", airquality.ErrProviderUnavailable), target: "/v1/air-quality/forecast/51.5/-0.12", wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, func(d *testDeps) { d.airQuality.err = tt.err })

			w := serve(router, http.MethodGet, tt.target, "")

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
		})
	}
}

func TestRouter_AirQualityHistory(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodGet, "/v1/air-quality/history/51.5/-0.12?start=2026-01-01&end=2026-01-02T00:00:00Z", "")
	require.Equal(t, http.StatusOK, w.Code)

	var history airquality.History
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Len(t, history.Items, 1)

	w = serve(router, http.MethodGet, "/v1/air-quality/history/51.5/-0.12?start=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_AirQualityRankings(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodGet, "/v1/air-quality/rankings?pollutant=no2", "")
	require.Equal(t, http.StatusOK, w.Code)

	var rankings airquality.Rankings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rankings))
	assert.Equal(t, "no2", rankings.Pollutant)
	require.Len(t, rankings.All, 1)
	assert.Equal(t, "London", rankings.All[0].Name)

	w = serve(router, http.MethodGet, "/v1/air-quality/rankings?pollutant=pollen", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_AirQualityRegions(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodGet, "/v1/air-quality/regions", "")
	require.Equal(t, http.StatusOK, w.Code)

	var regions []airquality.RegionReading
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &regions))
	require.Len(t, regions, 1)
	require.NotNil(t, regions[0].Reading)
}

func TestRouter_Geocoding(t *testing.T) {
	router := newTestRouter(t)

	t.Run("search", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/v1/geocoding/search?query=Westminster", "")
		require.Equal(t, http.StatusOK, w.Code)

		var result geocoding.SearchResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, "fake", result.Source)
		require.Len(t, result.Results, 1)
	})

	t.Run("search requires query", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/v1/geocoding/search", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("postcode", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/v1/geocoding/postcode/sw1a%201aa", "")
		require.Equal(t, http.StatusOK, w.Code)

		var loc geocoding.Location
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loc))
		assert.Equal(t, "SW1A 1AA", loc.Postcode)
	})

	t.Run("unknown postcode", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/v1/geocoding/postcode/ZZ99ZZ", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("reverse", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/v1/geocoding/reverse/51.501/-0.1416", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("providers", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/v1/geocoding/providers", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"providers":{"fake":true}}`, w.Body.String())
	})
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/routing/calculate-routes", http.NoBody)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RequestID_Preserved(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "custom_request_id")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, "custom_request_id", w.Header().Get("X-Request-Id"))
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodGet, "/v1/nonexistent", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}
