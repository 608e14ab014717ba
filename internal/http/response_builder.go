// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps domain errors onto status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"cashbook/internal/attachments"
	"cashbook/internal/core"
	"cashbook/internal/importer"
	"cashbook/internal/report"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *JSONResponseBuilder) JSON(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	body, err := json.Marshal(b.payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(body, '\n'))
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string, details ...string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		JSON(errorBody{Error: message, Details: details})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string, details ...string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message, details...)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string, details ...string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message, details...)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal server error")
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// validationError carries every field problem of a rejected payload.
type validationError struct {
	details []string
}

func (e *validationError) Error() string {
	return "invalid transaction"
}

// badRequest marks malformed input: undecodable bodies and bad query parameters.
type badRequest struct {
	msg string
}

func (e badRequest) Error() string {
	return e.msg
}

// errorFor maps err to its response. The second result reports whether err is
// a server-side failure that the caller should log.
func errorFor(err error) (*JSONResponseBuilder, bool) {
	var (
		verr    *validationError
		breq    badRequest
		missing *importer.MissingColumnsError
		tooBig  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verr):
		return UnprocessableEntityError(verr.Error(), verr.details...), false
	case errors.As(err, &breq):
		return BadRequestError(breq.msg), false
	case errors.As(err, &missing):
		return UnprocessableEntityError("missing required columns", missing.Columns...), false
	case errors.As(err, &tooBig):
		return ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large"), false
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("transaction not found"), false
	case errors.Is(err, attachments.ErrNotFound):
		return NotFoundError("attachment not found"), false
	case errors.Is(err, attachments.ErrUnsupportedExt):
		return ErrorResponse(http.StatusUnsupportedMediaType, err.Error()), false
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrLongDescription),
		errors.Is(err, core.ErrEmptyCategory):
		return UnprocessableEntityError(err.Error()), false
	case errors.Is(err, core.ErrRangeRequired),
		errors.Is(err, core.ErrInvalidWindow),
		errors.Is(err, report.ErrUnknownFormat),
		errors.Is(err, importer.ErrEmptyTable):
		return BadRequestError(err.Error()), false
	default:
		return InternalServerError(), true
	}
}
