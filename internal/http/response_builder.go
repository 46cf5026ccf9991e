// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses.
// It provides a fluent API for status, headers and body so that every
// handler answers with the same envelope shapes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"bilancio/internal/core"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    interface{}
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
func (b *JSONResponseBuilder) JSON(v interface{}) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Message sets a {"message": ...} body, merged with any extra fields.
func (b *JSONResponseBuilder) Message(msg string, extra map[string]interface{}) *JSONResponseBuilder {
	body := map[string]interface{}{"message": msg}
	for k, v := range extra {
		body[k] = v
	}
	b.payload = body
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
		slog.Error("Failed to encode JSON response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
}

// ErrorResponse creates a standard {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		JSON(map[string]string{"error": message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// TooManyRequestsError creates a 429 response with a Retry-After hint.
func TooManyRequestsError(retryAfterSeconds string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").
		Header("Retry-After", retryAfterSeconds)
}

// ErrorFromDomain maps service errors onto statuses: validation problems are
// the caller's fault (400), missing records are 404 and anything else is a
// 500 whose cause stays in the logs.
func ErrorFromDomain(err error) *JSONResponseBuilder {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		return BadRequestError(ve.Error())
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("Not found")
	case errors.Is(err, errBodyTooLarge):
		return ErrorResponse(http.StatusRequestEntityTooLarge, "Request body too large")
	default:
		return InternalServerError("Internal server error")
	}
}
