package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Exmortem/roman-numerals/internal/app"
	"github.com/Exmortem/roman-numerals/internal/common/config"
	"github.com/Exmortem/roman-numerals/internal/common/logger"
	"github.com/Exmortem/roman-numerals/internal/common/observability"
)

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	outputs := []string{cfg.Logging.Output}
	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, outputs...)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})
	log.Info("Starting roman numeral API...", map[string]interface{}{
		"environment": cfg.App.Environment,
		"cacheDriver": cfg.Cache.Driver,
	})

	a, err := app.New(ctx, cfg, log, app.WithObservabilityOptions(observability.WithGlobalProviders()))
	if err != nil {
		log.WithError(err).Error("startup failed", nil)
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(shutdownCtx); err != nil {
			log.WithError(err).Warn("cleanup failed", nil)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("http server stopped", nil)
		}
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received", nil)
	}

	if err := a.Server.Shutdown(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("graceful shutdown failed", nil)
		return err
	}
	log.Info("server stopped", nil)
	return <-errCh
}
