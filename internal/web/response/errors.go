package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/benregnier/speckle-mcp-gpt/internal/graph"
	"github.com/benregnier/speckle-mcp-gpt/internal/propertypath"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RenderJSON renders a successful JSON response
func RenderJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// RenderError renders a standard error response
func RenderError(w http.ResponseWriter, statusCode int, err error) {
	RenderErrorWithCode(w, statusCode, err, "")
}

// RenderErrorWithCode renders an error with a specific error code
func RenderErrorWithCode(w http.ResponseWriter, statusCode int, err error, code string) {
	if code == "" {
		code = errorCodeFromStatus(statusCode)
	}

	response := &ErrorResponse{
		Error:   "error",
		Message: err.Error(),
		Code:    code,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// RenderErrorWithDetails renders an error with additional details
func RenderErrorWithDetails(w http.ResponseWriter, statusCode int, err error, code string, details map[string]interface{}) {
	if code == "" {
		code = errorCodeFromStatus(statusCode)
	}

	response := &ErrorResponse{
		Error:   "error",
		Message: err.Error(),
		Code:    code,
		Details: details,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// RenderGraphError maps resolver and query failures onto HTTP responses.
// Path syntax and shape errors are the caller's fault; missing objects and
// properties are 404s; cycles surface as conflicts; upstream trouble maps to
// the gateway statuses.
func RenderGraphError(w http.ResponseWriter, err error) {
	var parseErr *propertypath.ParseError
	if errors.As(err, &parseErr) {
		RenderErrorWithDetails(w, http.StatusBadRequest, err, "InvalidPath", map[string]interface{}{
			"path":   parseErr.Path,
			"column": parseErr.Column,
		})
		return
	}

	var graphErr *graph.Error
	if !errors.As(err, &graphErr) {
		RenderError(w, http.StatusInternalServerError, err)
		return
	}

	details := map[string]interface{}{}
	if graphErr.ObjectID != "" {
		details["object_id"] = graphErr.ObjectID
	}
	if graphErr.Segment != "" {
		details["segment"] = graphErr.Segment
	}
	if len(details) == 0 {
		details = nil
	}

	RenderErrorWithDetails(w, statusFromKind(graphErr.Kind), err, graphErr.Kind.String(), details)
}

// statusFromKind maps graph error kinds to HTTP status codes
func statusFromKind(kind graph.Kind) int {
	switch kind {
	case graph.KindInvalidPath, graph.KindTypeMismatch:
		return http.StatusBadRequest
	case graph.KindNotFound, graph.KindPropertyNotFound, graph.KindIndexOutOfRange:
		return http.StatusNotFound
	case graph.KindCyclicReference:
		return http.StatusConflict
	case graph.KindFetchTimeout:
		return http.StatusGatewayTimeout
	case graph.KindTransient:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RenderBadRequest renders a 400 Bad Request error
func RenderBadRequest(w http.ResponseWriter, message string) {
	RenderError(w, http.StatusBadRequest, errors.New(message))
}

// RenderNotFound renders a 404 Not Found error
func RenderNotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RenderError(w, http.StatusNotFound, errors.New(message))
}

// RenderInternalError renders a 500 Internal Server Error
func RenderInternalError(w http.ResponseWriter, err error) {
	message := "Internal server error"
	if err != nil {
		message = err.Error()
	}
	RenderError(w, http.StatusInternalServerError, errors.New(message))
}

// errorCodeFromStatus maps HTTP status codes to error codes
func errorCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusBadGateway:
		return "bad_gateway"
	case http.StatusGatewayTimeout:
		return "gateway_timeout"
	case http.StatusInternalServerError:
		return "internal_error"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	default:
		return "error"
	}
}
