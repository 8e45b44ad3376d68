package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON body written for every failed request.
type ErrorResponse struct {
	StatusCode int          `json:"statusCode"`
	Error      string       `json:"error"`
	Code       ErrorCode    `json:"code"`
	Message    string       `json:"message"`
	Errors     []FieldError `json:"errors,omitempty"`
}

// Handler writes standardized error responses. Errors are logged where they
// are detected, so the handler itself does not log.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// WriteHTTPError normalizes err and writes it as a JSON error body.
func (h *Handler) WriteHTTPError(w http.ResponseWriter, _ *http.Request, err error) {
	stdErr := Normalize(err)
	status := GetHTTPStatus(stdErr.Code)

	resp := ToErrorResponse(stdErr)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// ToErrorResponse converts a StandardError to its wire representation.
func ToErrorResponse(stdErr *StandardError) ErrorResponse {
	status := GetHTTPStatus(stdErr.Code)
	return ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Code:       stdErr.Code,
		Message:    stdErr.Message,
		Errors:     stdErr.FieldErrors,
	}
}
