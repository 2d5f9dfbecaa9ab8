package routing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/airwatchuk/airwatch/pkg/polyline"
)

// DefaultProviderTimeout bounds each provider attempt.
const DefaultProviderTimeout = 10 * time.Second

// RequestRecorder receives per-attempt timings. Implemented by middleware.ProviderMetrics.
type RequestRecorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
}

// AcquirerConfig holds configuration for the route acquisition layer.
type AcquirerConfig struct {
	// Providers in preference order (primary, secondary, community).
	Providers []Provider

	// Fallback is used when no provider in Providers yields a route.
	Fallback Provider

	// MergeProviders collects routes from every successful provider instead of
	// stopping at the first one.
	MergeProviders bool

	// ProviderTimeout bounds each provider call (default: 10s).
	ProviderTimeout time.Duration

	// Metrics records provider attempts (optional).
	Metrics RequestRecorder

	// Logger for acquisition operations.
	Logger zerolog.Logger
}

// Acquirer walks the provider chain and normalizes whatever it gets back.
type Acquirer struct {
	providers []Provider
	fallback  Provider
	merge     bool
	timeout   time.Duration
	metrics   RequestRecorder
	logger    zerolog.Logger
}

// NewAcquirer creates a new route acquirer.
func NewAcquirer(cfg AcquirerConfig) *Acquirer {
	timeout := cfg.ProviderTimeout
	if timeout == 0 {
		timeout = DefaultProviderTimeout
	}

	return &Acquirer{
		providers: cfg.Providers,
		fallback:  cfg.Fallback,
		merge:     cfg.MergeProviders,
		timeout:   timeout,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// Acquire returns candidate routes for req in provider order.
func (a *Acquirer) Acquire(ctx context.Context, req Request) ([]Candidate, error) {
	if err := ValidateRequest("acquirer", req); err != nil {
		return nil, err
	}

	var collected []Candidate

	for _, p := range a.providers {
		if !p.Configured() {
			a.logger.Debug().
				Str("provider", p.Name()).
				Msg("skipping unconfigured routing provider")
			continue
		}

		candidates, err := a.attempt(ctx, p, req)
		if err != nil {
			a.logger.Warn().Err(err).
				Str("provider", p.Name()).
				Str("vehicle", string(req.Vehicle)).
				Msg("routing provider failed, trying next")
			continue
		}

		a.logger.Debug().
			Str("provider", p.Name()).
			Int("route_count", len(candidates)).
			Msg("routing provider returned routes")

		collected = append(collected, candidates...)
		if !a.merge {
			return collected, nil
		}
	}

	if len(collected) > 0 {
		return collected, nil
	}

	if a.fallback == nil {
		return nil, ErrNoRoutes
	}

	a.logger.Info().
		Str("provider", a.fallback.Name()).
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lon", req.Origin.Lon).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lon", req.Destination.Lon).
		Msg("no routing provider answered, using fallback routes")

	candidates, err := a.attempt(ctx, a.fallback, req)
	if err != nil {
		a.logger.Error().Err(err).Msg("fallback route generation failed")
		return nil, errors.Join(ErrNoRoutes, err)
	}
	return candidates, nil
}

// attempt calls one provider under its own timeout and normalizes the result.
// An empty normalized result counts as a failure.
func (a *Acquirer) attempt(ctx context.Context, p Provider, req Request) ([]Candidate, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	raw, err := p.Routes(callCtx, req)
	if err == nil {
		raw = normalize(p, raw)
		if len(raw) == 0 {
			err = &Error{Provider: p.Name(), Code: "EMPTY", Message: "provider returned no usable routes", Err: ErrNoRouteFound}
		}
	}

	if a.metrics != nil {
		a.metrics.RecordRequest(p.Name(), "routes", time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Providers reports every provider in the chain and whether it is configured.
func (a *Acquirer) Providers() []ProviderStatus {
	statuses := make([]ProviderStatus, 0, len(a.providers)+1)
	for _, p := range a.providers {
		statuses = append(statuses, ProviderStatus{Name: p.Name(), Kind: p.Kind(), Configured: p.Configured()})
	}
	if a.fallback != nil {
		statuses = append(statuses, ProviderStatus{Name: a.fallback.Name(), Kind: a.fallback.Kind(), Configured: a.fallback.Configured()})
	}
	return statuses
}

// ProviderStatus describes one provider in the chain.
type ProviderStatus struct {
	Name       string
	Kind       ProviderKind
	Configured bool
}

// normalize drops unusable candidates and fills the fields every consumer relies on.
func normalize(p Provider, candidates []Candidate) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !validPath(c) {
			continue
		}
		if c.Provider == "" {
			c.Provider = p.Kind()
		}
		if c.ProviderName == "" {
			c.ProviderName = p.Name()
		}
		if c.DistanceMeters <= 0 {
			c.DistanceMeters = polyline.Length(c.Path)
		}
		if c.DurationSeconds < 0 {
			c.DurationSeconds = 0
		}
		if c.ID == "" {
			c.ID = "route_" + uuid.New().String()[:8]
		}
		out = append(out, c)
	}
	return out
}

func validPath(c Candidate) bool {
	if len(c.Path) < 2 {
		return false
	}
	for _, pt := range c.Path {
		if !pt.Valid() {
			return false
		}
	}
	return true
}
