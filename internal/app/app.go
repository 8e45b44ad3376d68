// Package app assembles the service from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Exmortem/roman-numerals/internal/common/cache"
	"github.com/Exmortem/roman-numerals/internal/common/config"
	"github.com/Exmortem/roman-numerals/internal/common/database"
	apphttp "github.com/Exmortem/roman-numerals/internal/common/http"
	"github.com/Exmortem/roman-numerals/internal/common/logger"
	"github.com/Exmortem/roman-numerals/internal/common/observability"
	"github.com/Exmortem/roman-numerals/internal/health"
	"github.com/Exmortem/roman-numerals/internal/romannumeral"
	"github.com/Exmortem/roman-numerals/internal/server"
)

// App holds the assembled components.
type App struct {
	Config        *config.Config
	Observability *observability.Observability
	Store         cache.Store
	Service       *romannumeral.Service
	Server        *server.Server

	redis  *database.RedisClient
	logger logger.Logger
}

type Option func(*settings)

type settings struct {
	redisRetries    int
	redisRetryDelay time.Duration
	obsOptions      []observability.Option
	withoutServer   bool
}

// WithRedisRetries bounds the startup connection attempts to Redis.
func WithRedisRetries(attempts int, initialDelay time.Duration) Option {
	return func(s *settings) {
		s.redisRetries = attempts
		s.redisRetryDelay = initialDelay
	}
}

func WithObservabilityOptions(opts ...observability.Option) Option {
	return func(s *settings) {
		s.obsOptions = append(s.obsOptions, opts...)
	}
}

// WithoutServer skips the HTTP layer, for local conversions.
func WithoutServer() Option {
	return func(s *settings) {
		s.withoutServer = true
	}
}

func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*App, error) {
	s := settings{redisRetries: 10, redisRetryDelay: 2 * time.Second}
	for _, opt := range opts {
		opt(&s)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	obs, err := observability.New(cfg.Telemetry.ServiceName, s.obsOptions...)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Observability: obs, logger: log}

	if cfg.Cache.Driver == config.CacheDriverRedis {
		err = retryWithBackoff(ctx, func() error {
			client, err := database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			if err := client.Ping(ctx); err != nil {
				_ = client.Close()
				return err
			}
			a.redis = client
			return nil
		}, s.redisRetries, s.redisRetryDelay, log, "Redis connection")
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, err
		}
		log.Info("Redis connected successfully", map[string]interface{}{
			"address": cfg.Database.Redis.Address,
		})
	}

	a.Store, err = cache.NewStore(cfg.Cache, a.redis)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	aside := cache.NewAside(a.Store, log,
		cache.WithObserver(obs),
		cache.WithTracer(obs.Tracer()),
		cache.WithDedupe(cfg.Cache.DedupeInFlight),
	)
	a.Service = romannumeral.NewService(&romannumeral.Config{Chunks: cfg.Conversion.Chunks}, aside, obs, log)

	if s.withoutServer {
		return a, nil
	}

	indicators := []health.Indicator{health.CacheIndicator(a.Store)}
	if cfg.Health.PingURL != "" {
		timeout := config.GetDuration(cfg.Health.Timeout)
		indicators = append(indicators, health.HTTPIndicator("prometheus", cfg.Health.PingURL, apphttp.NewClient(timeout)))
	}

	a.Server, err = server.New(server.Options{
		Config:         cfg,
		Service:        a.Service,
		Health:         health.NewChecker(config.GetDuration(cfg.Health.Timeout), log, indicators...),
		Logger:         log,
		Gatherer:       obs.Gatherer(),
		TracerProvider: obs.TracerProvider(),
	})
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("failed to build http server: %w", err)
	}
	return a, nil
}

// Close releases the Redis connection and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			firstErr = err
		}
	}
	if err := a.Observability.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
