// Package cleanroute turns an origin and destination into a ranked list of
// routes, cleanest air first.
package cleanroute

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/airwatchuk/airwatch/internal/exposure"
	"github.com/airwatchuk/airwatch/internal/routing"
	"github.com/airwatchuk/airwatch/pkg/geo"
)

const tracerName = "github.com/airwatchuk/airwatch/internal/cleanroute"

// ErrNoRoutes is returned when acquisition produced nothing to rank.
var ErrNoRoutes = errors.New("no routes could be calculated")

// Acquirer fetches candidate routes. Implemented by routing.Acquirer.
type Acquirer interface {
	Acquire(ctx context.Context, req routing.Request) ([]routing.Candidate, error)
}

// Enricher annotates candidates with exposure. Implemented by exposure.Enricher.
type Enricher interface {
	EnrichAll(ctx context.Context, candidates []routing.Candidate, threshold float64) []exposure.EnrichedRoute
}

// Options tunes a single calculation. Zero values pick the defaults.
type Options struct {
	Vehicle routing.Vehicle

	// AvoidHighPollution ranks by health score when true (default).
	// When false, routes keep the provider's order.
	AvoidHighPollution *bool

	MaxAlternatives int

	// PollutionThreshold is the AQI above which a sample counts as high
	// exposure. Nil uses exposure.DefaultThreshold; zero is a valid value.
	PollutionThreshold *float64
}

func (o Options) avoid() bool {
	return o.AvoidHighPollution == nil || *o.AvoidHighPollution
}

// Result is the outcome of a calculation.
type Result struct {
	Success       bool
	Routes        []exposure.EnrichedRoute
	CleanestRoute *exposure.EnrichedRoute
	TotalRoutes   int
	Error         string
}

// ServiceConfig holds dependencies for the Service.
type ServiceConfig struct {
	Acquirer Acquirer
	Enricher Enricher
	Logger   zerolog.Logger
}

// Service runs acquisition, enrichment and ranking.
type Service struct {
	acquirer Acquirer
	enricher Enricher
	tracer   trace.Tracer
	logger   zerolog.Logger
}

// NewService creates a new clean route service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		acquirer: cfg.Acquirer,
		enricher: cfg.Enricher,
		tracer:   otel.Tracer(tracerName),
		logger:   cfg.Logger,
	}
}

// CalculateCleanRoutes fetches candidate routes between origin and destination,
// scores each for pollution exposure and returns them ranked.
// On failure the returned Result has Success=false and carries the error text.
func (s *Service) CalculateCleanRoutes(ctx context.Context, origin, destination geo.Coordinate, opts Options) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "cleanroute.CalculateCleanRoutes",
		trace.WithAttributes(
			attribute.Float64("route.origin.lat", origin.Lat),
			attribute.Float64("route.origin.lon", origin.Lon),
			attribute.Float64("route.destination.lat", destination.Lat),
			attribute.Float64("route.destination.lon", destination.Lon),
			attribute.String("route.vehicle", string(opts.Vehicle)),
			attribute.Bool("route.avoid_high_pollution", opts.avoid()),
		),
	)
	defer span.End()

	start := time.Now()

	vehicle := opts.Vehicle
	if vehicle == "" {
		vehicle = routing.VehicleCar
	}
	maxAlternatives := opts.MaxAlternatives
	if maxAlternatives <= 0 {
		maxAlternatives = DefaultMaxAlternatives
	}
	threshold := float64(exposure.DefaultThreshold)
	if opts.PollutionThreshold != nil && *opts.PollutionThreshold >= 0 {
		threshold = *opts.PollutionThreshold
	}

	candidates, err := s.acquirer.Acquire(ctx, routing.Request{
		Origin:       origin,
		Destination:  destination,
		Vehicle:      vehicle,
		Alternatives: maxAlternatives,
	})
	if err == nil && len(candidates) == 0 {
		err = ErrNoRoutes
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error().Err(err).
			Float64("origin_lat", origin.Lat).
			Float64("origin_lon", origin.Lon).
			Float64("dest_lat", destination.Lat).
			Float64("dest_lon", destination.Lon).
			Msg("clean route calculation failed")
		return &Result{Success: false, Error: err.Error()}, err
	}

	enriched := s.enricher.EnrichAll(ctx, candidates, threshold)

	var ranked []exposure.EnrichedRoute
	if opts.avoid() {
		ranked = Rank(enriched, maxAlternatives)
	} else {
		ranked = truncate(enriched, maxAlternatives)
	}

	result := &Result{
		Success:     true,
		Routes:      ranked,
		TotalRoutes: len(ranked),
	}
	if len(ranked) > 0 {
		result.CleanestRoute = &ranked[0]
		span.SetAttributes(
			attribute.String("route.cleanest.id", ranked[0].ID),
			attribute.Int("route.cleanest.health_score", ranked[0].HealthScore),
		)
	}
	span.SetAttributes(
		attribute.Int("route.candidates", len(candidates)),
		attribute.Int("route.returned", len(ranked)),
	)

	s.logger.Info().
		Int("candidates", len(candidates)).
		Int("returned", len(ranked)).
		Dur("duration", time.Since(start)).
		Msg("clean routes calculated")

	return result, nil
}
