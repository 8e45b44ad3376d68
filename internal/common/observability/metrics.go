package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	CalledCounterName    = "roman_numeral_called_counter"
	FromCacheCounterName = "roman_numeral_from_cache_counter"
)

// Observability owns the OpenTelemetry meter and tracer providers. Metrics
// are exported through a dedicated Prometheus registry.
type Observability struct {
	registry       *prometheus.Registry
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer

	calledCounter      otelmetric.Int64Counter
	fromCacheCounter   otelmetric.Int64Counter
	conversionDuration otelmetric.Float64Histogram
}

type Option func(*options)

type options struct {
	spanProcessors []sdktrace.SpanProcessor
	setGlobal      bool
}

// WithSpanProcessor attaches a span processor to the tracer provider.
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *options) {
		o.spanProcessors = append(o.spanProcessors, sp)
	}
}

// WithGlobalProviders installs the providers and a W3C trace context
// propagator as the otel globals.
func WithGlobalProviders() Option {
	return func(o *options) {
		o.setGlobal = true
	}
}

func New(serviceName string, opts ...Option) (*Observability, error) {
	var cfg options
	for _, opt := range opts {
		opt(&cfg)
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(
		otelprom.WithRegisterer(registry),
		otelprom.WithoutCounterSuffixes(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := metric.NewMeterProvider(metric.WithReader(exporter))

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	}
	for _, sp := range cfg.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sp))
	}
	tracerProvider := sdktrace.NewTracerProvider(tpOpts...)

	if cfg.setGlobal {
		otel.SetMeterProvider(meterProvider)
		otel.SetTracerProvider(tracerProvider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	}

	meter := meterProvider.Meter(serviceName)

	calledCounter, err := meter.Int64Counter(
		CalledCounterName,
		otelmetric.WithDescription("Number of roman numeral conversion requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", CalledCounterName, err)
	}

	fromCacheCounter, err := meter.Int64Counter(
		FromCacheCounterName,
		otelmetric.WithDescription("Number of roman numeral conversions served from cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", FromCacheCounterName, err)
	}

	conversionDuration, err := meter.Float64Histogram(
		"roman_numeral_conversion_duration",
		otelmetric.WithDescription("Conversion processing duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversion duration histogram: %w", err)
	}

	return &Observability{
		registry:           registry,
		meterProvider:      meterProvider,
		tracerProvider:     tracerProvider,
		meter:              meter,
		tracer:             tracerProvider.Tracer(serviceName),
		calledCounter:      calledCounter,
		fromCacheCounter:   fromCacheCounter,
		conversionDuration: conversionDuration,
	}, nil
}

// Gatherer exposes the otel-exported metrics for a promhttp handler.
func (o *Observability) Gatherer() prometheus.Gatherer {
	if o == nil || o.registry == nil {
		return prometheus.NewRegistry()
	}
	return o.registry
}

// Tracer returns the service tracer. A nil Observability yields a no-op
// tracer.
func (o *Observability) Tracer() trace.Tracer {
	if o == nil || o.tracer == nil {
		return noop.NewTracerProvider().Tracer("")
	}
	return o.tracer
}

// TracerProvider returns the SDK tracer provider, or a no-op provider when o
// is nil.
func (o *Observability) TracerProvider() trace.TracerProvider {
	if o == nil || o.tracerProvider == nil {
		return noop.NewTracerProvider()
	}
	return o.tracerProvider
}

func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordCalled counts a conversion request.
func (o *Observability) RecordCalled(ctx context.Context) {
	if o != nil && o.calledCounter != nil {
		o.calledCounter.Add(ctx, 1)
	}
}

// CacheHit counts a conversion served from cache.
func (o *Observability) CacheHit(ctx context.Context, _ string) {
	if o != nil && o.fromCacheCounter != nil {
		o.fromCacheCounter.Add(ctx, 1)
	}
}

func (o *Observability) CacheMiss(context.Context, string) {}

func (o *Observability) RecordConversionDuration(ctx context.Context, duration time.Duration, kind string) {
	if o != nil && o.conversionDuration != nil {
		o.conversionDuration.Record(ctx, float64(duration.Microseconds())/1000, otelmetric.WithAttributes(
			attribute.String("kind", kind),
		))
	}
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil {
		return nil
	}
	var firstErr error
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
