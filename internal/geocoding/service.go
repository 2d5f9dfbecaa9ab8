package geocoding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/airwatchuk/airwatch/pkg/geo"
)

// ServiceConfig holds configuration for the geocoding service.
type ServiceConfig struct {
	// Primary is tried first (OpenWeatherMap).
	Primary Provider

	// Fallback is tried when the primary has nothing (Mapbox, optional).
	Fallback Provider

	Logger zerolog.Logger
}

// Service resolves locations through a primary provider and a fallback.
type Service struct {
	providers []Provider
	logger    zerolog.Logger
}

// NewService creates a new geocoding service. Nil providers are ignored.
func NewService(cfg ServiceConfig) *Service {
	var providers []Provider
	for _, p := range []Provider{cfg.Primary, cfg.Fallback} {
		if p != nil {
			providers = append(providers, p)
		}
	}
	return &Service{providers: providers, logger: cfg.Logger}
}

// Search looks up a free-text query. Provider errors are logged and treated as
// no results, so an empty SearchResult with source "none" is not an error.
func (s *Service) Search(ctx context.Context, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	for _, p := range s.providers {
		if !p.Configured() {
			continue
		}
		results, err := p.Search(ctx, query)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("provider", p.Name()).
				Str("query", query).
				Msg("geocoding search failed")
			continue
		}
		if len(results) > 0 {
			return &SearchResult{Results: results, Source: p.Name()}, nil
		}
	}

	return &SearchResult{Results: []Location{}, Source: SourceNone}, nil
}

// Postcode resolves a UK postcode to coordinates.
func (s *Service) Postcode(ctx context.Context, postcode string) (*Location, error) {
	clean := NormalizePostcode(postcode)
	if clean == "" {
		return nil, ErrEmptyQuery
	}

	loc, err := s.first("postcode", func(p Provider) (*Location, error) {
		return p.Postcode(ctx, clean)
	})
	if err != nil {
		return nil, fmt.Errorf("postcode %s: %w", clean, err)
	}
	if loc.Postcode == "" {
		loc.Postcode = clean
	}
	return loc, nil
}

// Reverse finds the place nearest to coord.
func (s *Service) Reverse(ctx context.Context, coord geo.Coordinate) (*Location, error) {
	if err := coord.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
	}
	return s.first("reverse", func(p Provider) (*Location, error) {
		return p.Reverse(ctx, coord)
	})
}

// first returns the first successful provider answer.
func (s *Service) first(op string, call func(Provider) (*Location, error)) (*Location, error) {
	var errs []error
	for _, p := range s.providers {
		if !p.Configured() {
			continue
		}
		loc, err := call(p)
		if err == nil && loc != nil {
			return loc, nil
		}
		if err == nil {
			err = ErrNotFound
		}
		s.logger.Warn().Err(err).
			Str("provider", p.Name()).
			Str("operation", op).
			Msg("geocoding provider failed, trying next")
		errs = append(errs, err)
	}
	return nil, errors.Join(append([]error{ErrNotFound}, errs...)...)
}

// Providers reports each provider's name and whether it is configured.
func (s *Service) Providers() map[string]bool {
	out := make(map[string]bool, len(s.providers))
	for _, p := range s.providers {
		out[p.Name()] = p.Configured()
	}
	return out
}
