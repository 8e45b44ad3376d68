package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/Exmortem/roman-numerals/internal/common/errors"
	"github.com/Exmortem/roman-numerals/internal/common/logger"
	"github.com/Exmortem/roman-numerals/internal/common/metrics"
)

const tracerName = "github.com/Exmortem/roman-numerals/internal/common/cache"

// Observer is told about every lookup outcome.
type Observer interface {
	CacheHit(ctx context.Context, key string)
	CacheMiss(ctx context.Context, key string)
}

type noopObserver struct{}

func (noopObserver) CacheHit(context.Context, string)  {}
func (noopObserver) CacheMiss(context.Context, string) {}

// Aside runs the cache-aside flow against a Store.
type Aside struct {
	store    Store
	logger   logger.Logger
	observer Observer
	tracer   trace.Tracer
	dedupe   bool
	group    singleflight.Group
}

type Option func(*Aside)

func WithObserver(o Observer) Option {
	return func(a *Aside) {
		if o != nil {
			a.observer = o
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(a *Aside) {
		if t != nil {
			a.tracer = t
		}
	}
}

// WithDedupe makes concurrent misses on the same key share one producer call.
// Without it each miss computes and stores its own value.
func WithDedupe(enabled bool) Option {
	return func(a *Aside) {
		a.dedupe = enabled
	}
}

func NewAside(store Store, log logger.Logger, opts ...Option) *Aside {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	a := &Aside{
		store:    store,
		logger:   log,
		observer: noopObserver{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Resolve returns the value cached under key, or computes it with producer,
// stores it and returns it. Producer failures are returned as-is when they are
// API errors or context errors, and wrapped as conversion failures otherwise.
// Nothing is stored when producer fails.
func Resolve[T any](ctx context.Context, a *Aside, key string, producer func(context.Context) (T, error)) (T, error) {
	ctx, span := a.tracer.Start(ctx, "cache.Resolve", trace.WithAttributes(
		attribute.String("cache.key", key),
		attribute.String("cache.backend", a.store.Backend()),
	))
	defer span.End()

	log := logger.FromContext(ctx, a.logger).WithFields(map[string]interface{}{
		"cacheKey": key,
	})

	value, hit, err := lookup[T](ctx, a, key, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cache lookup failed")
		return value, err
	}
	span.SetAttributes(attribute.Bool("cache.hit", hit))
	if hit {
		return value, nil
	}

	if !a.dedupe {
		value, err = produceAndStore(ctx, a, key, producer, log)
	} else {
		value, err = shareProduction(ctx, a, key, producer, log)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cache miss resolution failed")
		var zero T
		return zero, err
	}
	return value, nil
}

// shareProduction joins the in-flight computation for key. The shared call
// outlives any single caller, so it runs detached from caller cancellation;
// each caller still stops waiting when its own context is done.
func shareProduction[T any](ctx context.Context, a *Aside, key string, producer func(context.Context) (T, error), log logger.Logger) (T, error) {
	var zero T
	ch := a.group.DoChan(key, func() (interface{}, error) {
		return produceAndStore(context.WithoutCancel(ctx), a, key, producer, log)
	})

	select {
	case <-ctx.Done():
		log.Warn("stopped waiting for shared conversion", map[string]interface{}{"error": ctx.Err()})
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.CacheSharedResults.Inc()
		}
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func lookup[T any](ctx context.Context, a *Aside, key string, log logger.Logger) (T, bool, error) {
	var value T
	backend := a.store.Backend()

	log.Debug("fetching from cache", nil)
	data, found, err := a.store.Get(ctx, key)
	if err != nil {
		metrics.CacheErrors.WithLabelValues(backend, "get").Inc()
		log.Error("cache lookup failed", map[string]interface{}{"error": err})
		return value, false, errors.NewCacheOperationFailedError("get", key, err)
	}

	if found {
		err := json.Unmarshal(data, &value)
		if err == nil {
			metrics.CacheHits.WithLabelValues(backend).Inc()
			a.observer.CacheHit(ctx, key)
			log.Info("pulled from cache", nil)
			return value, true, nil
		}
		// Unreadable entries are dropped and recomputed.
		metrics.CacheErrors.WithLabelValues(backend, "decode").Inc()
		log.WithError(err).Warn("discarding unreadable cache entry", nil)
		if err := a.store.Delete(ctx, key); err != nil {
			metrics.CacheErrors.WithLabelValues(backend, "delete").Inc()
			log.WithError(err).Warn("failed to delete unreadable cache entry", nil)
		}
		var zero T
		value = zero
	}

	metrics.CacheMisses.WithLabelValues(backend).Inc()
	a.observer.CacheMiss(ctx, key)
	return value, false, nil
}

func produceAndStore[T any](ctx context.Context, a *Aside, key string, producer func(context.Context) (T, error), log logger.Logger) (T, error) {
	var zero T

	value, err := producer(ctx)
	if err != nil {
		// The caller went away; that is not a computation failure.
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			log.WithError(err).Warn("conversion abandoned", nil)
			return zero, err
		}
		log.Error("conversion failed", map[string]interface{}{"error": err})
		if _, ok := errors.AsStandardError(err); ok {
			return zero, err
		}
		return zero, errors.NewConversionFailedError(key, err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		log.Error("failed to encode cache entry", map[string]interface{}{"error": err})
		return zero, errors.NewCacheOperationFailedError("encode", key, err)
	}

	log.Info("storing to cache", nil)
	if err := a.store.Set(ctx, key, data); err != nil {
		metrics.CacheErrors.WithLabelValues(a.store.Backend(), "set").Inc()
		log.Error("cache store failed", map[string]interface{}{"error": err})
		return zero, errors.NewCacheOperationFailedError("set", key, err)
	}
	return value, nil
}
