package core

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes request failures into the closed taxonomy used
// across the SDK.
type ErrorCode string

const (
	ErrInvalidEndpoint   ErrorCode = "invalid_endpoint"
	ErrTransportFailure  ErrorCode = "transport_failure"
	ErrMalformedResponse ErrorCode = "malformed_response"
	ErrDecodingFailure   ErrorCode = "decoding_failure"
	ErrUnauthorized      ErrorCode = "unauthorized"
	ErrDomain            ErrorCode = "domain_error"
)

// RequestError is the single error type produced by the request pipeline.
// Exactly one Code is active; Status and RawBody are populated when the
// failure originated from an HTTP response.
type RequestError struct {
	Code    ErrorCode
	Message string
	Status  int
	RawBody []byte
	wrapped error
}

func (e *RequestError) Error() string {
	if e == nil {
		return ""
	}
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.wrapped)
	}
	return e.Message
}

func (e *RequestError) Unwrap() error { return e.wrapped }

// WrapError coerces err into a RequestError with the provided code.
// An error that already carries a RequestError is returned unchanged.
func WrapError(err error, code ErrorCode) *RequestError {
	if err == nil {
		return nil
	}
	var re *RequestError
	if errors.As(err, &re) {
		return re
	}
	return &RequestError{Code: code, Message: err.Error(), wrapped: err}
}

// NewError builds a RequestError explicitly.
func NewError(code ErrorCode, message string, opts ...ErrorOption) *RequestError {
	e := &RequestError{Code: code, Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ErrorOption mutates a RequestError during construction.
type ErrorOption func(*RequestError)

// WithStatus sets the HTTP status code.
func WithStatus(status int) ErrorOption {
	return func(e *RequestError) { e.Status = status }
}

// WithRawBody attaches the raw response bytes for diagnostics. The bytes
// are logged on decoding failures but never surfaced to end users.
func WithRawBody(body []byte) ErrorOption {
	return func(e *RequestError) { e.RawBody = body }
}

// WithWrapped attaches an underlying error.
func WithWrapped(err error) ErrorOption {
	return func(e *RequestError) { e.wrapped = err }
}

func classify(code ErrorCode) func(error) bool {
	return func(err error) bool {
		if err == nil {
			return false
		}
		var re *RequestError
		if errors.As(err, &re) {
			return re.Code == code
		}
		return false
	}
}

// Helper predicates for common error handling patterns.
var (
	IsInvalidEndpoint   = classify(ErrInvalidEndpoint)
	IsTransportFailure  = classify(ErrTransportFailure)
	IsMalformedResponse = classify(ErrMalformedResponse)
	IsDecodingFailure   = classify(ErrDecodingFailure)
	IsUnauthorized      = classify(ErrUnauthorized)
	IsDomainError       = classify(ErrDomain)
)

// StatusOf extracts the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}
