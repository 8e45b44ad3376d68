package romannumeral

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Exmortem/roman-numerals/internal/common/cache"
	apperrors "github.com/Exmortem/roman-numerals/internal/common/errors"
	"github.com/Exmortem/roman-numerals/internal/common/logger"
	"github.com/Exmortem/roman-numerals/internal/common/metrics"
)

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	log := logger.NewTestLogger(t)
	aside := cache.NewAside(cache.NewMemoryStore(100, 10*time.Second), log)
	handler := NewHandler(NewService(&Config{Chunks: 4}, aside, nil, log), log)

	r := mux.NewRouter()
	handler.Register(r)
	return r
}

func serve(t *testing.T, r http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHandler_Success(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name   string
		target string
		body   string
	}{
		{
			name:   "single",
			target: "/romannumeral?query=1990",
			body:   `{"input":"1990","output":"MCMXC"}`,
		},
		{
			name:   "range",
			target: "/romannumeral?min=1&max=3",
			body:   `{"conversions":[{"input":"1","output":"I"},{"input":"2","output":"II"},{"input":"3","output":"III"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, r, http.MethodGet, tt.target)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestHandler_Errors(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCode   apperrors.ErrorCode
		wantMsg    string
		wantFields int
	}{
		{
			name:       "no selector",
			target:     "/romannumeral",
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.ErrCodeNoSelectorProvided,
			wantMsg:    "No query or range provided.",
		},
		{
			name:       "invalid query",
			target:     "/romannumeral?query=4000",
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.ErrCodeValidationFailed,
			wantMsg:    "The query parameter must be less than or equal to 3999.",
			wantFields: 1,
		},
		{
			name:       "min only",
			target:     "/romannumeral?min=1",
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.ErrCodeValidationFailed,
			wantMsg:    "The max parameter must also be provided when the min parameter is set",
			wantFields: 1,
		},
		{
			name:       "query with range",
			target:     "/romannumeral?query=3&min=1&max=5",
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.ErrCodeValidationFailed,
			wantMsg:    "If query is provided, min and max parameters should not be present.",
			wantFields: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, r, http.MethodGet, tt.target)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body apperrors.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.StatusCode)
			assert.Equal(t, http.StatusText(tt.wantStatus), body.Error)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMsg, body.Message)
			assert.Len(t, body.Errors, tt.wantFields)
		})
	}
}

func TestHandler_OnlyGet(t *testing.T) {
	rec := serve(t, newTestRouter(t), http.MethodPost, "/romannumeral?query=1")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_CountsErrors(t *testing.T) {
	r := newTestRouter(t)
	noSelector := metrics.ConversionErrors.WithLabelValues(string(apperrors.ErrCodeNoSelectorProvided), "client")
	invalid := metrics.ConversionErrors.WithLabelValues(string(apperrors.ErrCodeValidationFailed), "client")
	beforeNoSelector := testutil.ToFloat64(noSelector)
	beforeInvalid := testutil.ToFloat64(invalid)

	serve(t, r, http.MethodGet, "/romannumeral")
	serve(t, r, http.MethodGet, "/romannumeral?query=0")
	serve(t, r, http.MethodGet, "/romannumeral?query=10")

	assert.Equal(t, beforeNoSelector+1, testutil.ToFloat64(noSelector))
	assert.Equal(t, beforeInvalid+1, testutil.ToFloat64(invalid))
}
