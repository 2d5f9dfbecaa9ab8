// Package app assembles the provider graph shared by the API server and the
// cache warm-up worker.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/valkey-io/valkey-go"

	"github.com/airwatchuk/airwatch/internal/airquality"
	aqowm "github.com/airwatchuk/airwatch/internal/airquality/openweathermap"
	"github.com/airwatchuk/airwatch/internal/api/middleware"
	"github.com/airwatchuk/airwatch/internal/cleanroute"
	"github.com/airwatchuk/airwatch/internal/config"
	"github.com/airwatchuk/airwatch/internal/exposure"
	"github.com/airwatchuk/airwatch/internal/geocoding"
	"github.com/airwatchuk/airwatch/internal/geocoding/mapbox"
	geoowm "github.com/airwatchuk/airwatch/internal/geocoding/openweathermap"
	"github.com/airwatchuk/airwatch/internal/provider/resilience"
	"github.com/airwatchuk/airwatch/internal/routing"
	"github.com/airwatchuk/airwatch/internal/routing/graphhopper"
	"github.com/airwatchuk/airwatch/internal/routing/openrouteservice"
	"github.com/airwatchuk/airwatch/internal/routing/osrm"
	"github.com/airwatchuk/airwatch/internal/routing/synthetic"
	"github.com/airwatchuk/airwatch/internal/telemetry"
)

const valkeyPingTimeout = 2 * time.Second

// NewLogger returns the process logger. Development builds log at debug level.
func NewLogger(cfg *config.Config, service, version string) zerolog.Logger {
	level := zerolog.InfoLevel
	if !cfg.IsProduction() {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Str("env", cfg.App.Environment).
		Logger()
}

// TelemetryConfig maps the telemetry section onto telemetry.Config.
func TelemetryConfig(cfg *config.Config, service, version string) telemetry.Config {
	return telemetry.Config{
		ServiceName:    service,
		ServiceVersion: version,
		Environment:    cfg.App.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	}
}

// Components are the long-lived services built from configuration.
type Components struct {
	Registry        *resilience.Registry
	ProviderMetrics *middleware.ProviderMetrics

	AirQuality  *airquality.Service
	Geocoding   *geocoding.Service
	Acquirer    *routing.Acquirer
	CleanRoutes *cleanroute.Service

	valkey      valkey.Client
	valkeyCache *airquality.ValkeyCache
}

// Build wires providers, caches and services. A configured but unreachable
// Valkey falls back to the in-memory cache so the process still starts.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Components, error) {
	providerMetrics, err := middleware.NewProviderMetrics()
	if err != nil {
		return nil, fmt.Errorf("init provider metrics: %w", err)
	}

	c := &Components{
		Registry:        resilience.NewRegistry(),
		ProviderMetrics: providerMetrics,
	}

	var cache airquality.Cache = airquality.NewMemoryCache()
	if cfg.Valkey.Addr != "" {
		client, err := connectValkey(ctx, cfg.Valkey.Addr)
		if err != nil {
			logger.Error().Err(err).Str("addr", cfg.Valkey.Addr).Msg("valkey unavailable, falling back to memory cache")
		} else {
			c.valkey = client
			c.valkeyCache = airquality.NewValkeyCache(client, cfg.Valkey.Prefix)
			cache = c.valkeyCache
			logger.Info().Str("addr", cfg.Valkey.Addr).Msg("valkey cache enabled")
		}
	}

	c.AirQuality = airquality.NewService(airquality.ServiceConfig{
		Provider: aqowm.NewClient(aqowm.ClientConfig{
			APIKey:   cfg.Providers.OpenWeatherAPIKey,
			Registry: c.Registry,
			Logger:   logger,
		}),
		Cache:             cache,
		Metrics:           providerMetrics,
		RegionConcurrency: cfg.AirQuality.RegionConcurrency,
		CacheTTL:          cfg.AirQuality.CacheTTL,
		StaleIfErrorTTL:   cfg.AirQuality.StaleIfErrorTTL,
		Logger:            logger,
	})

	c.Geocoding = geocoding.NewService(geocoding.ServiceConfig{
		Primary: geoowm.NewClient(geoowm.ClientConfig{
			APIKey:   cfg.Providers.OpenWeatherAPIKey,
			Registry: c.Registry,
			Logger:   logger,
		}),
		Fallback: mapbox.NewClient(mapbox.ClientConfig{
			AccessToken: cfg.Providers.MapboxAccessToken,
			Registry:    c.Registry,
			Logger:      logger,
		}),
		Logger: logger,
	})

	timeout := cfg.Routing.ProviderTimeout
	c.Acquirer = routing.NewAcquirer(routing.AcquirerConfig{
		Providers: []routing.Provider{
			graphhopper.NewClient(graphhopper.ClientConfig{
				APIKey:   cfg.Providers.GraphHopperAPIKey,
				Timeout:  timeout,
				Registry: c.Registry,
				Logger:   logger,
			}),
			openrouteservice.NewClient(openrouteservice.ClientConfig{
				APIKey:   cfg.Providers.OpenRouteServiceAPIKey,
				Timeout:  timeout,
				Registry: c.Registry,
				Logger:   logger,
			}),
			osrm.NewClient(osrm.ClientConfig{
				BaseURL:  cfg.Providers.OSRMBaseURL,
				Disabled: cfg.Providers.OSRMDisabled,
				Timeout:  timeout,
				Registry: c.Registry,
				Logger:   logger,
			}),
		},
		Fallback:        synthetic.New(synthetic.Config{Logger: logger}),
		MergeProviders:  cfg.Routing.MergeProviders,
		ProviderTimeout: timeout,
		Metrics:         providerMetrics,
		Logger:          logger,
	})

	c.CleanRoutes = cleanroute.NewService(cleanroute.ServiceConfig{
		Acquirer: c.Acquirer,
		Enricher: exposure.NewEnricher(exposure.Config{
			Source:           exposure.FromReadings(c.AirQuality, nil),
			QueryTimeout:     cfg.Exposure.QueryTimeout,
			SampleTarget:     cfg.Exposure.SampleTarget,
			RouteConcurrency: cfg.Exposure.RouteConcurrency,
			Logger:           logger,
		}),
		Logger: logger,
	})

	return c, nil
}

// SharedCache reports whether readings go to Valkey rather than process memory.
func (c *Components) SharedCache() bool {
	return c.valkeyCache != nil
}

// PingCache checks the shared cache. It is a no-op for the in-memory cache.
func (c *Components) PingCache(ctx context.Context) error {
	if c.valkeyCache == nil {
		return nil
	}
	return c.valkeyCache.Ping(ctx)
}

// Close releases the Valkey connection, if any.
func (c *Components) Close() {
	if c.valkey != nil {
		c.valkey.Close()
	}
}

func connectValkey(ctx context.Context, addr string) (valkey.Client, error) {
	opt, err := valkeyOptions(addr)
	if err != nil {
		return nil, fmt.Errorf("parse valkey address: %w", err)
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, valkeyPingTimeout)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping valkey: %w", err)
	}
	return client, nil
}

// valkeyOptions accepts either host:port or a redis:// style URL.
func valkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}
