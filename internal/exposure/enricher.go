package exposure

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/airwatchuk/airwatch/internal/airquality"
	"github.com/airwatchuk/airwatch/internal/random"
	"github.com/airwatchuk/airwatch/internal/routing"
	"github.com/airwatchuk/airwatch/pkg/geo"
)

// DefaultQueryTimeout bounds each point query.
const DefaultQueryTimeout = 10 * time.Second

// Source yields an AQI-equivalent exposure value at a coordinate.
type Source interface {
	Exposure(ctx context.Context, coord geo.Coordinate) (float64, error)
}

// Querier fetches current air quality readings. Implemented by airquality.Service.
type Querier interface {
	Current(ctx context.Context, coord geo.Coordinate) (*airquality.Reading, error)
}

// FromReadings adapts a Querier into a Source using DeriveAQI.
func FromReadings(q Querier, src random.Source) Source {
	if src == nil {
		src = random.Default()
	}
	return &readingSource{querier: q, rand: src}
}

type readingSource struct {
	querier Querier
	rand    random.Source
}

func (s *readingSource) Exposure(ctx context.Context, coord geo.Coordinate) (float64, error) {
	r, err := s.querier.Current(ctx, coord)
	if err != nil {
		return 0, err
	}
	return DeriveAQI(r, s.rand), nil
}

// EnrichedRoute is a candidate route annotated with exposure and health fields.
type EnrichedRoute struct {
	routing.Candidate

	AverageExposure          float64
	MaxExposure              float64
	HighExposureSegmentCount int
	HealthScore              int
	HealthRisk               Risk

	// SampledPoints is the number of points queried; FailedSamples of them fell back.
	SampledPoints int
	FailedSamples int
	// Estimated is set when no sample could be measured and defaults were used.
	Estimated bool
}

// Config holds configuration for the Enricher.
type Config struct {
	// Source provides exposure values (required).
	Source Source

	// QueryTimeout bounds each point query (default: 10s).
	QueryTimeout time.Duration

	// SampleTarget is the number of points sampled per route (default: 5).
	SampleTarget int

	// RouteConcurrency bounds how many routes are enriched at once (default: 4).
	RouteConcurrency int

	// Rand supplies fallback values for failed samples (optional).
	Rand random.Source

	Logger zerolog.Logger
}

// Enricher annotates routes with exposure data. It never fails a route:
// failed samples and failed routes fall back to estimated values.
type Enricher struct {
	source           Source
	queryTimeout     time.Duration
	sampleTarget     int
	routeConcurrency int
	rand             random.Source
	logger           zerolog.Logger
}

// NewEnricher creates a new Enricher.
func NewEnricher(cfg Config) *Enricher {
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	target := cfg.SampleTarget
	if target <= 0 {
		target = DefaultSampleTarget
	}
	concurrency := cfg.RouteConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	src := cfg.Rand
	if src == nil {
		src = random.Default()
	}

	return &Enricher{
		source:           cfg.Source,
		queryTimeout:     timeout,
		sampleTarget:     target,
		routeConcurrency: concurrency,
		rand:             src,
		logger:           cfg.Logger,
	}
}

// Enrich samples c's path, queries every sample concurrently and scores the route.
// A negative threshold uses DefaultThreshold.
func (e *Enricher) Enrich(ctx context.Context, c routing.Candidate, threshold float64) EnrichedRoute {
	if threshold < 0 {
		threshold = DefaultThreshold
	}

	points := Sample(c.Path, e.sampleTarget)
	values := make([]float64, len(points))
	failed := make([]bool, len(points))

	// Plain Group: one failing sample must not cancel its siblings.
	var g errgroup.Group
	for i, pt := range points {
		g.Go(func() error {
			v, err := e.query(ctx, pt)
			if err != nil {
				failed[i] = true
				e.logger.Debug().Err(err).
					Str("route_id", c.ID).
					Float64("lat", pt.Lat).
					Float64("lon", pt.Lon).
					Msg("exposure sample failed, using fallback value")
				return nil
			}
			values[i] = v
			return nil
		})
	}
	_ = g.Wait()

	failures := 0
	for _, f := range failed {
		if f {
			failures++
		}
	}

	if len(points) == 0 || failures == len(points) {
		e.logger.Warn().
			Str("route_id", c.ID).
			Int("sampled_points", len(points)).
			Msg("no exposure samples available, using default exposure")
		er := defaultEnrichment(c)
		er.SampledPoints = len(points)
		er.FailedSamples = failures
		return er
	}

	var sum, maxVal float64
	high := 0
	for i := range values {
		if failed[i] {
			values[i] = random.Uniform(e.rand, fallbackMin, fallbackMax)
		}
		v := values[i]
		sum += v
		if i == 0 || v > maxVal {
			maxVal = v
		}
		if v > threshold {
			high++
		}
	}
	avg := sum / float64(len(values))

	return EnrichedRoute{
		Candidate:                c,
		AverageExposure:          avg,
		MaxExposure:              maxVal,
		HighExposureSegmentCount: high,
		HealthScore:              HealthScore(avg, c.DistanceMeters, c.DurationSeconds, high),
		HealthRisk:               RiskFor(avg),
		SampledPoints:            len(points),
		FailedSamples:            failures,
	}
}

// query runs one sample under its own timeout, converting panics to errors.
func (e *Enricher) query(ctx context.Context, pt geo.Coordinate) (v float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("exposure query panicked: %v", r)
		}
	}()

	qctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()
	return e.source.Exposure(qctx, pt)
}

// EnrichAll enriches routes concurrently, preserving input order.
// A route whose enrichment panics receives the default annotation.
func (e *Enricher) EnrichAll(ctx context.Context, candidates []routing.Candidate, threshold float64) []EnrichedRoute {
	out := make([]EnrichedRoute, len(candidates))

	var g errgroup.Group
	g.SetLimit(e.routeConcurrency)
	for i, c := range candidates {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error().
						Str("route_id", c.ID).
						Interface("panic", r).
						Msg("route enrichment panicked, using default exposure")
					out[i] = defaultEnrichment(c)
				}
			}()
			out[i] = e.Enrich(ctx, c, threshold)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// defaultEnrichment is the annotation used when nothing could be measured.
func defaultEnrichment(c routing.Candidate) EnrichedRoute {
	return EnrichedRoute{
		Candidate:                c,
		AverageExposure:          defaultExposure,
		MaxExposure:              defaultExposure,
		HighExposureSegmentCount: 0,
		HealthScore:              HealthScore(defaultExposure, c.DistanceMeters, c.DurationSeconds, 0),
		HealthRisk:               RiskModerate,
		Estimated:                true,
	}
}
