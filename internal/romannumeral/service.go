package romannumeral

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Exmortem/roman-numerals/internal/common/cache"
	"github.com/Exmortem/roman-numerals/internal/common/logger"
	"github.com/Exmortem/roman-numerals/internal/common/metrics"
	"github.com/Exmortem/roman-numerals/internal/common/observability"
	"github.com/Exmortem/roman-numerals/internal/models"
)

// Config holds the conversion settings.
type Config struct {
	// Chunks is the number of concurrent workers used for a range.
	Chunks int
}

// Service resolves conversion requests through the cache.
type Service struct {
	config *Config
	aside  *cache.Aside
	obs    *observability.Observability
	logger logger.Logger
}

func NewService(config *Config, aside *cache.Aside, obs *observability.Observability, log logger.Logger) *Service {
	if config == nil {
		config = &Config{}
	}
	if config.Chunks <= 0 {
		config.Chunks = DefaultChunks
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		config: config,
		aside:  aside,
		obs:    obs,
		logger: log,
	}
}

// GetRomanNumeral classifies req and returns its single or range conversion,
// served from cache when possible. The request is expected to be validated,
// but shapes that validation should have rejected still fail cleanly.
func (s *Service) GetRomanNumeral(ctx context.Context, req models.ConversionRequest) (models.Response, error) {
	s.obs.RecordCalled(ctx)

	c := Classify(req)
	ctx, span := s.obs.StartSpan(ctx, "romannumeral.GetRomanNumeral",
		attribute.String("conversion.kind", c.Kind.String()),
		attribute.String("cache.key", c.Key),
	)
	defer span.End()

	log := logger.FromContext(ctx, s.logger)
	start := time.Now()

	var (
		resp models.Response
		err  error
	)
	switch c.Kind {
	case KindSingle:
		resp, err = s.single(ctx, c)
	case KindRange:
		resp, err = s.rangeOf(ctx, c)
	case KindMissing:
		log.Warn("no query or range provided", nil)
		err = c.Err()
	default:
		log.Error("could not determine the type of conversion to perform", map[string]interface{}{
			"reason": c.Reason,
		})
		err = c.Err()
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	s.obs.RecordConversionDuration(ctx, time.Since(start), c.Kind.String())
	return resp, nil
}

func (s *Service) single(ctx context.Context, c Classification) (models.Response, error) {
	return cache.Resolve(ctx, s.aside, c.Key, func(context.Context) (models.Conversion, error) {
		if c.Query < MinValue || c.Query > MaxValue {
			return models.Conversion{}, fmt.Errorf("%w: %d", ErrOutOfRange, c.Query)
		}
		metrics.ConversionsTotal.WithLabelValues(KindSingle.String()).Inc()
		return Convert(c.Query), nil
	})
}

func (s *Service) rangeOf(ctx context.Context, c Classification) (models.Response, error) {
	return cache.Resolve(ctx, s.aside, c.Key, func(ctx context.Context) (models.Conversions, error) {
		conversions, err := ConvertRange(ctx, c.Min, c.Max, s.config.Chunks)
		if err != nil {
			return models.Conversions{}, err
		}
		metrics.ConversionsTotal.WithLabelValues(KindRange.String()).Inc()
		return models.Conversions{Conversions: conversions}, nil
	})
}
