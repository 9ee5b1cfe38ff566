package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/services"
	"tally/internal/statement"
)

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	body       any
	text       string
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Text sets a plain text body instead of JSON.
func (b *ResponseBuilder) Text(s string) *ResponseBuilder {
	b.text = s
	b.headers["Content-Type"] = "text/plain; charset=utf-8"
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.text != "" {
		w.WriteHeader(b.statusCode)
		_, _ = w.Write([]byte(b.text))
		return
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, errType, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message, Type: errType})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, log.ErrorTypeValidation, message)
}

// FromError maps a service error to its response: 422 for rejected input,
// 404 for missing records and 500 otherwise. Internal errors are not echoed
// to the caller.
func FromError(err error) *ResponseBuilder {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		return NewResponse().Status(http.StatusUnprocessableEntity).
			JSON(errorBody{Error: ve.Error(), Type: log.ErrorTypeValidation, Field: ve.Field})
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrSamePerson),
		errors.Is(err, services.ErrNothingImported),
		errors.Is(err, statement.ErrEmptyStatement), errors.Is(err, statement.ErrNoHeader):
		return ErrorResponse(http.StatusUnprocessableEntity, log.ErrorTypeValidation, err.Error())
	case errors.Is(err, core.ErrNotFound):
		return ErrorResponse(http.StatusNotFound, log.ErrorTypeNotFound, err.Error())
	default:
		return ErrorResponse(http.StatusInternalServerError, log.ErrorTypeInternal, "internal error")
	}
}
