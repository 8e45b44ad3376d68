package romannumeral

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Exmortem/roman-numerals/internal/common/errors"
	"github.com/Exmortem/roman-numerals/internal/common/logger"
	"github.com/Exmortem/roman-numerals/internal/common/metrics"
)

const Route = "/romannumeral"

// Handler serves GET /romannumeral.
type Handler struct {
	service *Service
	errors  *errors.Handler
	logger  logger.Logger
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{
		service: service,
		errors:  errors.NewHandler(),
		logger:  log,
	}
}

// Register mounts the handler's routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc(Route, h.GetRomanNumeral).Methods(http.MethodGet)
}

func (h *Handler) GetRomanNumeral(w http.ResponseWriter, r *http.Request) {
	req, result := ParseRequest(r.URL.Query())
	if !result.Valid {
		logger.FromContext(r.Context(), h.logger).Warn("request validation failed", map[string]interface{}{
			"errors": result.GetErrorMessages(),
		})
		h.fail(w, r, ValidationError(result))
		return
	}

	resp, err := h.service.GetRomanNumeral(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.FromContext(r.Context(), h.logger).Error("failed to write response", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.Normalize(err).Code
	metrics.ConversionErrors.WithLabelValues(string(code), errors.GetErrorCategory(code)).Inc()
	h.errors.WriteHTTPError(w, r, err)
}
