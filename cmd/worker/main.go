// Package main provides the entrypoint for the AirWatch cache warm-up worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwatchuk/airwatch/internal/api/handler"
	"github.com/airwatchuk/airwatch/internal/app"
	"github.com/airwatchuk/airwatch/internal/config"
	"github.com/airwatchuk/airwatch/internal/telemetry"
	"github.com/airwatchuk/airwatch/internal/worker"
)

const serviceName = "airwatch-worker"

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := app.NewLogger(config.Default(), serviceName, Version)
		fallback.Fatal().Err(err).Msg("failed to load config")
	}

	log := app.NewLogger(cfg, serviceName, Version)
	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AirWatch worker")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tp, err := telemetry.Init(ctx, app.TelemetryConfig(cfg, serviceName, Version))
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

	components, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to build services")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	defer components.Close()

	if !components.SharedCache() {
		log.Warn().Msg("no shared cache configured - refreshed readings stay in this process")
	}
	if !components.AirQuality.Configured() {
		log.Warn().Msg("OPENWEATHER_API_KEY not set - every refresh will fail")
	}

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{
			Targets:     worker.DefaultRefreshTargets(),
			Concurrency: cfg.Worker.Concurrency,
			Timeout:     cfg.Worker.PointTimeout,
		},
		Refresher: components.AirQuality,
		Logger:    log,
	})

	checks := map[string]handler.ReadinessCheck{}
	if components.SharedCache() {
		checks["valkey"] = components.PingCache
	}

	server := &http.Server{
		Addr: ":" + cfg.Worker.Port,
		Handler: worker.NewRouter(job, handler.OpsConfig{
			Version:   Version,
			BuildTime: BuildTime,
			Registry:  components.Registry,
			Cache:     components.AirQuality,
			Checks:    checks,
		}, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
			cancel()
		}
	}()

	pubsubErr := errors.New("pubsub not configured")
	if cfg.Worker.PubSubEnabled() {
		pubsubErr = runPubSub(ctx, cfg, job, components, log)
	}
	if pubsubErr != nil {
		log.Info().Err(pubsubErr).Dur("interval", cfg.Worker.Interval).Msg("refreshing on a ticker")
		job.Loop(ctx, cfg.Worker.Interval)
	}

	log.Info().Msg("shutting down worker")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

// runPubSub blocks until ctx is done. It only returns an error when the
// subscription could not be set up.
func runPubSub(ctx context.Context, cfg *config.Config, job *worker.RefreshJob, components *app.Components, log zerolog.Logger) error {
	h, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        cfg.Worker.PubSubProjectID,
		SubscriptionName: cfg.Worker.PubSubSubscription,
		Dispatcher:       worker.NewDispatcher(job, components.AirQuality, log),
		Logger:           log,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := h.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close pubsub client")
		}
	}()

	if err := h.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("pubsub receive stopped")
	}
	return nil
}
