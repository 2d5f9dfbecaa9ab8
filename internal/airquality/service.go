package airquality

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/airwatchuk/airwatch/internal/random"
	"github.com/airwatchuk/airwatch/pkg/geo"
)

// Provider defines the interface for air quality data providers.
type Provider interface {
	// Name returns the provider identifier for logging and metrics.
	Name() string

	// Configured reports whether the provider has credentials.
	Configured() bool

	// Current fetches the latest reading at coord.
	Current(ctx context.Context, coord geo.Coordinate) (*Reading, error)

	// Forecast fetches hourly forecast readings at coord.
	Forecast(ctx context.Context, coord geo.Coordinate) (*Forecast, error)
}

// MetricsRecorder receives provider call timings and cache outcomes.
// Implemented by middleware.ProviderMetrics.
type MetricsRecorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

// ServiceConfig holds configuration for the air quality service.
type ServiceConfig struct {
	// Provider is the air quality data provider.
	Provider Provider

	// Cache stores current readings (optional, defaults to an in-memory cache).
	Cache Cache

	// Metrics records provider calls and cache outcomes (optional).
	Metrics MetricsRecorder

	// Rand drives synthetic history (optional).
	Rand random.Source

	// Regions used for regional comparison (optional, defaults to UKRegions).
	Regions []Region

	// RegionConcurrency bounds concurrent region lookups (default: 4).
	RegionConcurrency int

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long a reading is served without refetching (default: 5 minutes).
	CacheTTL time.Duration

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 30 minutes).
	StaleIfErrorTTL time.Duration

	// Now overrides the clock (optional).
	Now func() time.Time
}

// Service provides air quality data with caching.
type Service struct {
	provider          Provider
	cache             Cache
	metrics           MetricsRecorder
	rand              random.Source
	regions           []Region
	regionConcurrency int
	logger            zerolog.Logger
	cacheTTL          time.Duration
	staleIfErrorTTL   time.Duration
	now               func() time.Time

	group singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
	stale  atomic.Int64
}

// NewService creates a new air quality service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 30 * time.Minute
	}
	if staleIfErrorTTL < cacheTTL {
		staleIfErrorTTL = cacheTTL
	}

	cache := cfg.Cache
	if cache == nil {
		cache = NewMemoryCache()
	}

	src := cfg.Rand
	if src == nil {
		src = random.Default()
	}

	regions := cfg.Regions
	if len(regions) == 0 {
		regions = UKRegions
	}

	concurrency := cfg.RegionConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		provider:          cfg.Provider,
		cache:             cache,
		metrics:           cfg.Metrics,
		rand:              src,
		regions:           regions,
		regionConcurrency: concurrency,
		logger:            cfg.Logger,
		cacheTTL:          cacheTTL,
		staleIfErrorTTL:   staleIfErrorTTL,
		now:               now,
	}
}

// Configured reports whether the underlying provider can be called.
func (s *Service) Configured() bool {
	return s.provider != nil && s.provider.Configured()
}

// Current returns the latest reading at coord, served from the grid cache while fresh.
// When the provider fails, a cached reading younger than the stale window is returned instead.
func (s *Service) Current(ctx context.Context, coord geo.Coordinate) (*Reading, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	key := GridKey(coord)

	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("air quality cache read failed")
		cached = nil
	}

	if cached != nil && s.now().Before(cached.FetchedAt.Add(s.cacheTTL)) {
		s.hits.Add(1)
		s.recordCache(true)
		return withCoordinate(cached.Reading, coord), nil
	}
	s.misses.Add(1)
	s.recordCache(false)

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.fetchCurrent(ctx, key, coord)
	})
	if err != nil {
		if cached != nil && s.now().Before(cached.FetchedAt.Add(s.staleIfErrorTTL)) {
			s.stale.Add(1)
			s.logger.Warn().
				Err(err).
				Time("fetched_at", cached.FetchedAt).
				Msg("serving stale air quality data due to provider error")
			return withCoordinate(cached.Reading, coord), nil
		}
		if errors.Is(err, ErrNotConfigured) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	return withCoordinate(v.(*Reading), coord), nil
}

func (s *Service) fetchCurrent(ctx context.Context, key string, coord geo.Coordinate) (*Reading, error) {
	start := time.Now()
	reading, err := s.provider.Current(ctx, coord)
	s.recordRequest("current", time.Since(start), err)
	if err != nil {
		s.logger.Error().Err(err).
			Str("provider", s.provider.Name()).
			Float64("lat", coord.Lat).
			Float64("lon", coord.Lon).
			Msg("failed to fetch current air quality")
		return nil, err
	}

	entry := &Entry{Reading: reading, FetchedAt: s.now()}
	if err := s.cache.Set(ctx, key, entry, s.staleIfErrorTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("air quality cache write failed")
	}
	return reading, nil
}

// Refresh fetches a reading at coord from the provider and stores it,
// ignoring any cached entry. Used to warm the shared cache.
func (s *Service) Refresh(ctx context.Context, coord geo.Coordinate) (*Reading, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	key := GridKey(coord)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.fetchCurrent(ctx, key, coord)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	return withCoordinate(v.(*Reading), coord), nil
}

// Forecast returns the provider's forecast at coord. Forecasts are not cached.
func (s *Service) Forecast(ctx context.Context, coord geo.Coordinate) (*Forecast, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	start := time.Now()
	forecast, err := s.provider.Forecast(ctx, coord)
	s.recordRequest("forecast", time.Since(start), err)
	if err != nil {
		s.logger.Error().Err(err).Str("provider", s.provider.Name()).Msg("failed to fetch air quality forecast")
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	return forecast, nil
}

// Stats reports cache counters since start.
func (s *Service) Stats() CacheStats {
	return CacheStats{
		Hits:        s.hits.Load(),
		Misses:      s.misses.Load(),
		StaleServed: s.stale.Load(),
	}
}

// CacheStats counts cache outcomes.
type CacheStats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	StaleServed int64 `json:"staleServed"`
}

func (s *Service) recordRequest(op string, d time.Duration, err error) {
	if s.metrics != nil {
		s.metrics.RecordRequest(s.provider.Name(), op, d, err)
	}
}

func (s *Service) recordCache(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.RecordCacheHit(s.provider.Name(), "current")
	} else {
		s.metrics.RecordCacheMiss(s.provider.Name(), "current")
	}
}

// withCoordinate returns a copy of r reporting the requested coordinate,
// since cached readings are shared across a grid cell.
func withCoordinate(r *Reading, coord geo.Coordinate) *Reading {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Coordinate = coord
	return &cp
}
