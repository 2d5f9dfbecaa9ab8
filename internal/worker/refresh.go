package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/airwatchuk/airwatch/internal/airquality"
	"github.com/airwatchuk/airwatch/pkg/geo"
)

const tracerName = "github.com/airwatchuk/airwatch/internal/worker"

// Refresher fetches a fresh reading and stores it in the cache.
// Implemented by airquality.Service.
type Refresher interface {
	Refresh(ctx context.Context, coord geo.Coordinate) (*airquality.Reading, error)
}

// RefreshJob warms the air quality cache for a fixed set of targets.
type RefreshJob struct {
	config    RefreshConfig
	refresher Refresher
	logger    zerolog.Logger
	tracer    trace.Tracer

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRuns           int64
	SuccessfulRefreshes int64
	FailedRefreshes     int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config    RefreshConfig
	Refresher Refresher
	Logger    zerolog.Logger
}

// NewRefreshJob creates a new refresh job.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	return &RefreshJob{
		config:    cfg.Config.withDefaults(),
		refresher: cfg.Refresher,
		logger:    cfg.Logger,
		tracer:    otel.Tracer(tracerName),
		metrics:   &RefreshMetrics{},
	}
}

// Targets returns the job's refresh targets.
func (j *RefreshJob) Targets() []RefreshTarget {
	out := make([]RefreshTarget, len(j.config.Targets))
	copy(out, j.config.Targets)
	return out
}

// RefreshResult contains the result of one run.
type RefreshResult struct {
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	TotalTargets int
	Successful   int
	Failed       int
	Errors       []RefreshError
}

// RefreshError records a target that could not be refreshed.
type RefreshError struct {
	Target string
	Error  string
}

// Run refreshes every target with a bounded pool of workers. Targets not yet
// started when ctx is cancelled are counted as failed.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	ctx, span := j.tracer.Start(ctx, "worker.RefreshJob.Run",
		trace.WithAttributes(
			attribute.Int("refresh.targets", len(j.config.Targets)),
			attribute.Int("refresh.concurrency", j.config.Concurrency),
		),
	)
	defer span.End()

	startTime := time.Now()
	result := &RefreshResult{
		StartTime:    startTime,
		TotalTargets: len(j.config.Targets),
	}

	j.logger.Info().
		Int("total_targets", result.TotalTargets).
		Int("concurrency", j.config.Concurrency).
		Msg("starting air quality refresh")

	targets := make(chan RefreshTarget, len(j.config.Targets))
	results := make(chan targetResult, len(j.config.Targets))

	var wg sync.WaitGroup
	for range j.config.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, targets, results)
		}()
	}

	for _, t := range j.config.Targets {
		targets <- t
	}
	close(targets)

	go func() {
		wg.Wait()
		close(results)
	}()

	seen := 0
	for tr := range results {
		seen++
		if tr.err == nil {
			result.Successful++
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, RefreshError{Target: tr.target.Name, Error: tr.err.Error()})
	}
	if skipped := result.TotalTargets - seen; skipped > 0 {
		result.Failed += skipped
		result.Errors = append(result.Errors, RefreshError{Target: "*", Error: "cancelled before refresh"})
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	span.SetAttributes(
		attribute.Int("refresh.successful", result.Successful),
		attribute.Int("refresh.failed", result.Failed),
	)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("air quality refresh completed")

	return result
}

type targetResult struct {
	target RefreshTarget
	err    error
}

func (j *RefreshJob) refreshWorker(ctx context.Context, targets <-chan RefreshTarget, results chan<- targetResult) {
	for target := range targets {
		if ctx.Err() != nil {
			return
		}
		results <- targetResult{target: target, err: j.refreshTarget(ctx, target)}
	}
}

func (j *RefreshJob) refreshTarget(ctx context.Context, target RefreshTarget) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	if _, err := j.refresher.Refresh(ctx, target.Coordinate); err != nil {
		j.logger.Warn().Err(err).
			Str("target", target.Name).
			Float64("lat", target.Coordinate.Lat).
			Float64("lon", target.Coordinate.Lon).
			Msg("failed to refresh air quality")
		return err
	}
	return nil
}

// Loop runs the job immediately and then every interval until ctx is done.
func (j *RefreshJob) Loop(ctx context.Context, interval time.Duration) {
	j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulRefreshes += int64(result.Successful)
	j.metrics.FailedRefreshes += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:           j.metrics.TotalRuns,
		SuccessfulRefreshes: j.metrics.SuccessfulRefreshes,
		FailedRefreshes:     j.metrics.FailedRefreshes,
		LastRunAt:           j.metrics.LastRunAt,
		LastRunDuration:     j.metrics.LastRunDuration,
		TotalDuration:       j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns the current metrics as a JSON-friendly map.
func (j *RefreshJob) MetricsSnapshot() map[string]any {
	m := j.GetMetrics()
	snapshot := map[string]any{
		"total_runs":           m.TotalRuns,
		"successful_refreshes": m.SuccessfulRefreshes,
		"failed_refreshes":     m.FailedRefreshes,
		"last_run_duration":    m.LastRunDuration.String(),
		"total_duration":       m.TotalDuration.String(),
	}
	if !m.LastRunAt.IsZero() {
		snapshot["last_run_at"] = m.LastRunAt.UTC().Format(time.RFC3339)
	}
	return snapshot
}
