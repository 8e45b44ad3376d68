// Package server wires the HTTP surface: routing, middleware, metrics,
// health and API docs.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/Exmortem/roman-numerals/internal/common/config"
	apperrors "github.com/Exmortem/roman-numerals/internal/common/errors"
	"github.com/Exmortem/roman-numerals/internal/common/logger"
	"github.com/Exmortem/roman-numerals/internal/health"
	"github.com/Exmortem/roman-numerals/internal/romannumeral"
)

const (
	HealthPath  = "/health"
	DocsPath    = "/docs"
	DocsYAML    = "/docs/openapi.yaml"
	DocsJSON    = "/docs/openapi.json"
	metricsPath = "/metrics"
)

// Options carries the collaborators the server routes to.
type Options struct {
	Config   *config.Config
	Service  *romannumeral.Service
	Health   *health.Checker
	Logger   logger.Logger
	Gatherer prometheus.Gatherer
	// TracerProvider is used by otelhttp. Nil falls back to the global one.
	TracerProvider trace.TracerProvider
}

type Server struct {
	config     *config.Config
	router     *mux.Router
	handler    http.Handler
	httpServer *http.Server
	logger     logger.Logger
}

func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("server config is required")
	}
	if opts.Service == nil {
		return nil, fmt.Errorf("conversion service is required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	docs, err := newDocsHandler()
	if err != nil {
		return nil, err
	}

	errs := apperrors.NewHandler()
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errs.WriteHTTPError(w, r, apperrors.NewNotFoundError(r.Method+" "+r.URL.Path))
	})

	romannumeral.NewHandler(opts.Service, log).Register(router)

	if opts.Health != nil {
		router.Handle(HealthPath, opts.Health).Methods(http.MethodGet)
	}

	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer}
	if opts.Gatherer != nil {
		gatherers = append(gatherers, opts.Gatherer)
	}
	path := opts.Config.Telemetry.MetricsPath
	if path == "" {
		path = metricsPath
	}
	router.Handle(path, promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	router.HandleFunc(DocsYAML, docs.serveYAML).Methods(http.MethodGet)
	router.HandleFunc(DocsJSON, docs.serveJSON).Methods(http.MethodGet)
	router.Handle(DocsPath, http.RedirectHandler(DocsJSON, http.StatusFound)).Methods(http.MethodGet)

	handler := chain(router,
		requestID,
		secureHeaders,
		accessLog(log, router),
		recoverer(log, errs),
	)

	otelOpts := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + routeTemplate(router, r)
		}),
	}
	if opts.TracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(opts.TracerProvider))
	}
	handler = otelhttp.NewHandler(handler, "http.server", otelOpts...)

	srvCfg := opts.Config.Server
	return &Server{
		config:  opts.Config,
		router:  router,
		handler: handler,
		httpServer: &http.Server{
			Addr:         srvCfg.Address(),
			Handler:      handler,
			ReadTimeout:  config.GetDuration(srvCfg.ReadTimeout),
			WriteTimeout: config.GetDuration(srvCfg.WriteTimeout),
		},
		logger: log,
	}, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until Shutdown is called. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{
		"address": s.httpServer.Addr,
	})
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := config.GetDuration(s.config.Server.ShutdownTimeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Info("shutting down http server", map[string]interface{}{
		"timeout": timeout.String(),
	})
	return s.httpServer.Shutdown(ctx)
}
