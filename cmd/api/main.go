// Package main provides the entrypoint for the AirWatch API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airwatchuk/airwatch/internal/api"
	"github.com/airwatchuk/airwatch/internal/api/handler"
	"github.com/airwatchuk/airwatch/internal/api/middleware"
	"github.com/airwatchuk/airwatch/internal/app"
	"github.com/airwatchuk/airwatch/internal/config"
	"github.com/airwatchuk/airwatch/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger depends on config; fall back to a bare one.
		fallback := app.NewLogger(config.Default(), api.DefaultServiceName, Version)
		fallback.Fatal().Err(err).Msg("failed to load config")
	}

	log := app.NewLogger(cfg, api.DefaultServiceName, Version)
	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AirWatch API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, app.TelemetryConfig(cfg, api.DefaultServiceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	components, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to build services")
		os.Exit(1)
	}
	defer components.Close()

	for _, p := range components.Acquirer.Providers() {
		log.Info().
			Str("provider", p.Name).
			Str("kind", string(p.Kind)).
			Bool("configured", p.Configured).
			Msg("routing provider")
	}
	if !components.AirQuality.Configured() {
		log.Warn().Msg("OPENWEATHER_API_KEY not set - air quality endpoints return 503, route exposure is estimated")
	}

	checks := map[string]handler.ReadinessCheck{}
	if components.SharedCache() {
		checks["valkey"] = components.PingCache
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:             log,
		ServiceName:        api.DefaultServiceName,
		Metrics:            metrics,
		RequireTLS:         cfg.IsProduction(),
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		CleanRoutes:        components.CleanRoutes,
		RoutingProviders:   components.Acquirer,
		AirQuality:         components.AirQuality,
		AirQualityCacheTTL: cfg.AirQuality.CacheTTL,
		Geocoding:          components.Geocoding,
		Ops: handler.OpsConfig{
			Version:   Version,
			BuildTime: BuildTime,
			Registry:  components.Registry,
			Cache:     components.AirQuality,
			Checks:    checks,
		},
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
