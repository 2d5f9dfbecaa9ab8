package middleware

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/airwatchuk/airwatch/internal/api/middleware"

// MetricsOption configures NewMetrics and NewProviderMetrics.
type MetricsOption func(*metricsOptions)

type metricsOptions struct {
	provider metric.MeterProvider
}

// WithMeterProvider records into mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) MetricsOption {
	return func(o *metricsOptions) { o.provider = mp }
}

func newMeter(opts []MetricsOption) metric.Meter {
	o := metricsOptions{provider: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(&o)
	}
	return o.provider.Meter(meterName)
}

// instruments creates instruments on a meter, keeping the first error.
type instruments struct {
	meter metric.Meter
	err   error
}

func (b *instruments) histogram(name, desc, unit string) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.keep(err)
	return h
}

func (b *instruments) intHistogram(name, desc, unit string) metric.Int64Histogram {
	h, err := b.meter.Int64Histogram(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.keep(err)
	return h
}

func (b *instruments) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.keep(err)
	return c
}

func (b *instruments) upDown(name, desc, unit string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.keep(err)
	return c
}

func (b *instruments) keep(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Metrics holds the HTTP server instruments.
type Metrics struct {
	requestDuration  metric.Float64Histogram
	requestTotal     metric.Int64Counter
	requestsInFlight metric.Int64UpDownCounter
	responseSize     metric.Int64Histogram
}

// NewMetrics creates the HTTP server instruments.
func NewMetrics(opts ...MetricsOption) (*Metrics, error) {
	b := &instruments{meter: newMeter(opts)}
	m := &Metrics{
		requestDuration:  b.histogram("http.server.request.duration", "Duration of HTTP server requests", "s"),
		requestTotal:     b.counter("http.server.request.total", "HTTP server requests", "{request}"),
		requestsInFlight: b.upDown("http.server.active_requests", "HTTP requests being served", "{request}"),
		responseSize:     b.intHistogram("http.server.response.body.size", "HTTP response body size", "By"),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

// Middleware records one data point per request. Requests are labelled with
// the chi route pattern so coordinates and postcodes in the path do not
// create new series.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			inFlight := metric.WithAttributes(attribute.String("http.request.method", r.Method))
			m.requestsInFlight.Add(ctx, 1, inFlight)
			defer m.requestsInFlight.Add(ctx, -1, inFlight)

			wrapped := newStatusRecorder(w)
			next.ServeHTTP(wrapped, r)

			attrs := []attribute.KeyValue{
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", routePattern(r)),
				attribute.Int("http.response.status_code", wrapped.statusCode),
			}
			if wrapped.statusCode >= 500 {
				attrs = append(attrs, attribute.String("error.type", "server"))
			} else if wrapped.statusCode >= 400 {
				attrs = append(attrs, attribute.String("error.type", "client"))
			}
			set := metric.WithAttributes(attrs...)

			m.requestDuration.Record(ctx, time.Since(start).Seconds(), set)
			m.requestTotal.Add(ctx, 1, set)
			m.responseSize.Record(ctx, wrapped.written, set)
		})
	}
}

// ProviderMetrics instruments upstream provider calls and the reading cache.
// It satisfies routing.RequestRecorder and airquality.MetricsRecorder.
type ProviderMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
}

// NewProviderMetrics creates the provider instruments.
func NewProviderMetrics(opts ...MetricsOption) (*ProviderMetrics, error) {
	b := &instruments{meter: newMeter(opts)}
	m := &ProviderMetrics{
		requestDuration: b.histogram("provider.request.duration", "Duration of upstream provider requests", "s"),
		requestTotal:    b.counter("provider.request.total", "Upstream provider requests", "{request}"),
		cacheHits:       b.counter("provider.cache.hit", "Reading cache hits", "{hit}"),
		cacheMisses:     b.counter("provider.cache.miss", "Reading cache misses", "{miss}"),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

func providerAttrs(provider, operation string, failed bool) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
		attribute.Bool("error", failed),
	)
}

// RecordRequest records one provider call. A detached context is used so
// calls abandoned by a cancelled request are still counted.
func (m *ProviderMetrics) RecordRequest(provider, operation string, duration time.Duration, err error) {
	attrs := providerAttrs(provider, operation, err != nil)
	m.requestDuration.Record(context.Background(), duration.Seconds(), attrs)
	m.requestTotal.Add(context.Background(), 1, attrs)
}

// RecordCacheHit counts a reading served from cache.
func (m *ProviderMetrics) RecordCacheHit(provider, operation string) {
	m.cacheHits.Add(context.Background(), 1, providerAttrs(provider, operation, false))
}

// RecordCacheMiss counts a reading that had to be fetched.
func (m *ProviderMetrics) RecordCacheMiss(provider, operation string) {
	m.cacheMisses.Add(context.Background(), 1, providerAttrs(provider, operation, false))
}
