// Package health reports the status of the service's dependencies.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Exmortem/roman-numerals/internal/common/cache"
	apphttp "github.com/Exmortem/roman-numerals/internal/common/http"
	"github.com/Exmortem/roman-numerals/internal/common/logger"
)

const (
	StatusOK    = "ok"
	StatusError = "error"

	StatusUp   = "up"
	StatusDown = "down"

	DefaultTimeout = 3 * time.Second
)

// Indicator checks one dependency.
type Indicator struct {
	Name  string
	Check func(ctx context.Context) error
}

// CacheIndicator pings the conversion cache store.
func CacheIndicator(store cache.Store) Indicator {
	return Indicator{
		Name:  "cache",
		Check: store.Ping,
	}
}

// HTTPIndicator expects a 2xx from a GET to url.
func HTTPIndicator(name, url string, client *apphttp.Client) Indicator {
	return Indicator{
		Name: name,
		Check: func(ctx context.Context) error {
			return client.Ping(ctx, url)
		},
	}
}

// IndicatorStatus is the state of a single indicator.
type IndicatorStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Result groups indicator states the way the health endpoint reports them:
// healthy ones under Info, failing ones under Error and all of them under
// Details.
type Result struct {
	Status  string                     `json:"status"`
	Info    map[string]IndicatorStatus `json:"info"`
	Error   map[string]IndicatorStatus `json:"error"`
	Details map[string]IndicatorStatus `json:"details"`
}

func (r Result) Healthy() bool {
	return r.Status == StatusOK
}

type Checker struct {
	indicators []Indicator
	timeout    time.Duration
	logger     logger.Logger
}

func NewChecker(timeout time.Duration, log logger.Logger, indicators ...Indicator) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Checker{
		indicators: indicators,
		timeout:    timeout,
		logger:     log,
	}
}

// Check runs every indicator concurrently, each bounded by the checker's
// timeout.
func (c *Checker) Check(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	statuses := make([]IndicatorStatus, len(c.indicators))
	var g errgroup.Group
	for i, ind := range c.indicators {
		g.Go(func() error {
			if err := ind.Check(ctx); err != nil {
				statuses[i] = IndicatorStatus{Status: StatusDown, Message: err.Error()}
				return nil
			}
			statuses[i] = IndicatorStatus{Status: StatusUp}
			return nil
		})
	}
	_ = g.Wait()

	result := Result{
		Status:  StatusOK,
		Info:    map[string]IndicatorStatus{},
		Error:   map[string]IndicatorStatus{},
		Details: map[string]IndicatorStatus{},
	}
	for i, ind := range c.indicators {
		st := statuses[i]
		result.Details[ind.Name] = st
		if st.Status == StatusUp {
			result.Info[ind.Name] = st
			continue
		}
		result.Error[ind.Name] = st
		result.Status = StatusError
	}
	return result
}

// ServeHTTP writes the check result, with 503 when any indicator is down.
func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	result := c.Check(r.Context())

	status := http.StatusOK
	if !result.Healthy() {
		status = http.StatusServiceUnavailable
		logger.FromContext(r.Context(), c.logger).Warn("health check failed", map[string]interface{}{
			"error": result.Error,
		})
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result)
}
