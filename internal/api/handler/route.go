package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/airwatchuk/airwatch/internal/api/models"
	"github.com/airwatchuk/airwatch/internal/api/response"
	"github.com/airwatchuk/airwatch/internal/cleanroute"
	"github.com/airwatchuk/airwatch/internal/exposure"
	"github.com/airwatchuk/airwatch/internal/routing"
	"github.com/airwatchuk/airwatch/pkg/geo"
	"github.com/airwatchuk/airwatch/pkg/polyline"
)

// maxRouteRequestBytes bounds the route calculation body.
const maxRouteRequestBytes = 64 << 10

// RouteCalculator computes ranked clean routes.
type RouteCalculator interface {
	CalculateCleanRoutes(ctx context.Context, origin, destination geo.Coordinate, opts cleanroute.Options) (*cleanroute.Result, error)
}

// RoutingProviders lists the routing provider chain.
type RoutingProviders interface {
	Providers() []routing.ProviderStatus
}

// RouteHandler handles routing endpoints.
type RouteHandler struct {
	routes    RouteCalculator
	providers RoutingProviders
	logger    zerolog.Logger
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(routes RouteCalculator, providers RoutingProviders, logger zerolog.Logger) *RouteHandler {
	return &RouteHandler{routes: routes, providers: providers, logger: logger}
}

// CalculateRoutes handles POST /v1/routing/calculate-routes.
func (h *RouteHandler) CalculateRoutes(w http.ResponseWriter, r *http.Request) {
	result, ok := h.calculate(w, r)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, toRouteResponse(result))
}

// CalculateRoutesGeoJSON handles POST /v1/routing/calculate-routes.geojson.
// Each ranked route becomes a LineString feature, cleanest first.
func (h *RouteHandler) CalculateRoutesGeoJSON(w http.ResponseWriter, r *http.Request) {
	result, ok := h.calculate(w, r)
	if !ok {
		return
	}
	response.GeoJSON(w, r, http.StatusOK, toFeatureCollection(result))
}

// ListProviders handles GET /v1/routing/providers.
func (h *RouteHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	statuses := h.providers.Providers()
	resp := models.RoutingProvidersResponse{Providers: make([]models.RoutingProvider, 0, len(statuses))}
	for _, s := range statuses {
		resp.Providers = append(resp.Providers, models.RoutingProvider{
			Name:       s.Name,
			Kind:       string(s.Kind),
			Configured: s.Configured,
		})
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// calculate decodes and validates the request and runs the calculation.
// It writes the error response itself and reports whether the caller should continue.
func (h *RouteHandler) calculate(w http.ResponseWriter, r *http.Request) (*cleanroute.Result, bool) {
	var input models.RouteRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRouteRequestBytes))
	if err := dec.Decode(&input); err != nil {
		detail := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			detail = "request body is required"
		}
		response.BadRequest(w, r, detail, nil)
		return nil, false
	}

	if fieldErrs := input.Validate(); len(fieldErrs) > 0 {
		response.BadRequest(w, r, "origin and destination coordinates are required: expected { lat: number, lon: number }", fieldErrs)
		return nil, false
	}

	origin := geo.Coordinate{Lat: *input.Origin.Lat, Lon: *input.Origin.Lon}
	destination := geo.Coordinate{Lat: *input.Destination.Lat, Lon: *input.Destination.Lon}

	result, err := h.routes.CalculateCleanRoutes(r.Context(), origin, destination, cleanroute.Options{
		Vehicle:            routing.ParseVehicle(input.Options.Vehicle),
		AvoidHighPollution: input.Options.AvoidHighPollution,
		MaxAlternatives:    input.Options.MaxAlternatives,
		PollutionThreshold: input.Options.PollutionThreshold,
	})
	if err != nil {
		msg := "failed to calculate routes"
		if result != nil && result.Error != "" {
			msg = result.Error
		}
		response.JSON(w, r, http.StatusInternalServerError, models.RouteFailure{Success: false, Error: msg})
		return nil, false
	}

	return result, true
}

func toRouteResponse(result *cleanroute.Result) models.RouteResponse {
	resp := models.RouteResponse{
		Success:     true,
		Routes:      make([]models.Route, 0, len(result.Routes)),
		TotalRoutes: result.TotalRoutes,
	}
	for _, rt := range result.Routes {
		resp.Routes = append(resp.Routes, toRoute(rt))
	}
	if len(resp.Routes) > 0 {
		resp.CleanestRoute = &resp.Routes[0]
	}
	return resp
}

func toRoute(rt exposure.EnrichedRoute) models.Route {
	coords := make([][2]float64, len(rt.Path))
	for i, p := range rt.Path {
		coords[i] = [2]float64{p.Lon, p.Lat}
	}

	instructions := make([]models.Instruction, len(rt.Instructions))
	for i, in := range rt.Instructions {
		instructions[i] = models.Instruction{Text: in.Text, Distance: in.DistanceOffsetMeters}
	}

	return models.Route{
		ID:                       rt.ID,
		Name:                     rt.Name,
		Coordinates:              coords,
		Polyline:                 polyline.Encode(rt.Path),
		DistanceMeters:           rt.DistanceMeters,
		DurationSeconds:          rt.DurationSeconds,
		Provider:                 string(rt.Provider),
		ProviderName:             rt.ProviderName,
		Archetype:                string(rt.Archetype),
		Instructions:             instructions,
		PollutionScore:           rt.AverageExposure,
		MaxExposure:              rt.MaxExposure,
		HighExposureSegmentCount: rt.HighExposureSegmentCount,
		HealthScore:              rt.HealthScore,
		HealthRisk:               string(rt.HealthRisk),
		SampledPoints:            rt.SampledPoints,
		FailedSamples:            rt.FailedSamples,
		Estimated:                rt.Estimated,
	}
}

func toFeatureCollection(result *cleanroute.Result) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, rt := range result.Routes {
		line := make(orb.LineString, len(rt.Path))
		for j, p := range rt.Path {
			line[j] = orb.Point{p.Lon, p.Lat}
		}

		f := geojson.NewFeature(line)
		f.ID = rt.ID
		f.Properties["rank"] = i + 1
		f.Properties["name"] = rt.Name
		f.Properties["provider"] = string(rt.Provider)
		f.Properties["providerName"] = rt.ProviderName
		f.Properties["distance"] = rt.DistanceMeters
		f.Properties["duration"] = rt.DurationSeconds
		f.Properties["pollutionScore"] = rt.AverageExposure
		f.Properties["maxExposure"] = rt.MaxExposure
		f.Properties["healthScore"] = rt.HealthScore
		f.Properties["healthRisk"] = string(rt.HealthRisk)
		f.Properties["cleanest"] = i == 0
		fc.Append(f)
	}
	fc.BBox = geojson.NewBBox(bound(fc))
	return fc
}

func bound(fc *geojson.FeatureCollection) orb.Bound {
	var b orb.Bound
	for i, f := range fc.Features {
		if i == 0 {
			b = f.Geometry.Bound()
			continue
		}
		b = b.Union(f.Geometry.Bound())
	}
	return b
}
