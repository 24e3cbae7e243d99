package common

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/edap/edap-server/internal/service"
)

// Error codes returned in the "error" field of every failed response.
const (
	CodeTokenNonexistent   = "E_TOKEN_NONEXISTENT"
	CodeInvalidData        = "E_INVALID_DATA"
	CodeInvalidCredentials = "E_INVALID_CREDENTIALS"
	CodeNonExistentSetting = "E_SETTING_NONEXISTENT"
	CodeServerError        = "E_SERVER_ERROR"
	CodeUnknownEndpoint    = "E_UNKNOWN_ENDPOINT"
	CodeInvalidMethod      = "E_INVALID_METHOD"
	CodeDatabaseConnection = "E_DATABASE_CONNECTION_FAILED"
	CodeUnauthorized       = "E_UNAUTHORIZED"
)

// ErrorResponse is the body of every failed response
type ErrorResponse struct {
	Error string `json:"error" example:"E_TOKEN_NONEXISTENT"`
}

// ResultResponse acknowledges a request that has nothing else to return
type ResultResponse struct {
	Result string `json:"result" example:"ok"`
}

// OK is the body of a successful request without data
var OK = ResultResponse{Result: "ok"}

// WriteJSONResponse writes a JSON response with the given data
func WriteJSONResponse(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// WriteErrorResponse writes a standardized error response
func WriteErrorResponse(w http.ResponseWriter, code string, statusCode int) {
	WriteJSONResponse(w, ErrorResponse{Error: code}, statusCode)
}

// WriteServiceError maps an error returned by the service to its error code
// and status. Unclassified errors are logged and reported as server errors.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrTokenNotFound):
		WriteErrorResponse(w, CodeTokenNonexistent, http.StatusUnauthorized)
	case errors.Is(err, service.ErrWrongCredentials):
		WriteErrorResponse(w, CodeInvalidCredentials, http.StatusUnauthorized)
	case errors.Is(err, service.ErrNonExistentSetting):
		WriteErrorResponse(w, CodeNonExistentSetting, http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidRequest):
		WriteErrorResponse(w, CodeInvalidData, http.StatusBadRequest)
	default:
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		WriteErrorResponse(w, CodeServerError, http.StatusInternalServerError)
	}
}

// DecodeJSON reads a JSON body into v and writes E_INVALID_DATA when it cannot.
// The caller stops handling the request when it returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		WriteErrorResponse(w, CodeInvalidData, http.StatusBadRequest)
		return false
	}
	return true
}

const maxBodyBytes = 1 << 20

// NotFound answers requests for unknown routes
func NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteErrorResponse(w, CodeUnknownEndpoint, http.StatusNotFound)
}

// MethodNotAllowed answers requests with an unsupported method
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	WriteErrorResponse(w, CodeInvalidMethod, http.StatusMethodNotAllowed)
}
