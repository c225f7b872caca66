package httpclient

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies transport failures.
type ErrorType int

const (
	NetworkError ErrorType = iota
	TimeoutError
	CancelledError
	HTTPError
	ValidationError
	InterceptorError
)

func (t ErrorType) String() string {
	switch t {
	case NetworkError:
		return "network"
	case TimeoutError:
		return "timeout"
	case CancelledError:
		return "cancelled"
	case HTTPError:
		return "http"
	case ValidationError:
		return "validation"
	case InterceptorError:
		return "interceptor"
	default:
		return "unknown"
	}
}

// ClientError is implemented by every error returned from the client.
type ClientError interface {
	error
	Type() ErrorType
}

type networkError struct {
	message string
	err     error
}

// NewNetworkError reports a connection or transport failure.
func NewNetworkError(message string, err error) ClientError {
	return &networkError{message: message, err: err}
}

func (e *networkError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("network error: %s: %v", e.message, e.err)
	}
	return "network error: " + e.message
}

func (e *networkError) Type() ErrorType { return NetworkError }
func (e *networkError) Unwrap() error   { return e.err }

type timeoutError struct {
	message string
	timeout time.Duration
}

// NewTimeoutError reports that the per-request timer fired before the exchange completed.
func NewTimeoutError(message string, timeout time.Duration) ClientError {
	return &timeoutError{message: message, timeout: timeout}
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timeout error: %s (timeout: %v)", e.message, e.timeout)
}

func (e *timeoutError) Type() ErrorType        { return TimeoutError }
func (e *timeoutError) Timeout() time.Duration { return e.timeout }

// Unwrap lets errors.Is(err, context.DeadlineExceeded) match.
func (e *timeoutError) Unwrap() error { return context.DeadlineExceeded }

type cancelledError struct {
	message string
	err     error
}

// NewCancelledError reports that the caller's context ended the request.
func NewCancelledError(message string, err error) ClientError {
	return &cancelledError{message: message, err: err}
}

func (e *cancelledError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("cancelled: %s: %v", e.message, e.err)
	}
	return "cancelled: " + e.message
}

func (e *cancelledError) Type() ErrorType { return CancelledError }
func (e *cancelledError) Unwrap() error   { return e.err }

type httpError struct {
	message    string
	statusCode int
	body       []byte
}

// NewHTTPError reports a non-2xx response. The response body is kept for callers.
func NewHTTPError(message string, statusCode int, body []byte) ClientError {
	return &httpError{message: message, statusCode: statusCode, body: body}
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP error: %s (status %d)", e.message, e.statusCode)
}

func (e *httpError) Type() ErrorType { return HTTPError }
func (e *httpError) StatusCode() int { return e.statusCode }
func (e *httpError) Body() []byte    { return e.body }

type validationError struct {
	message string
	field   string
}

// NewValidationError reports a request that could not be built.
func NewValidationError(message, field string) ClientError {
	return &validationError{message: message, field: field}
}

func (e *validationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("validation error: %s (field: %s)", e.message, e.field)
	}
	return "validation error: " + e.message
}

func (e *validationError) Type() ErrorType { return ValidationError }
func (e *validationError) Field() string   { return e.field }

type interceptorError struct {
	message string
	stage   string
	err     error
}

// NewInterceptorError reports a failing request or response interceptor.
func NewInterceptorError(message, stage string, err error) ClientError {
	return &interceptorError{message: message, stage: stage, err: err}
}

func (e *interceptorError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("interceptor error: %s [%s]: %v", e.message, e.stage, e.err)
	}
	return fmt.Sprintf("interceptor error: %s [%s]", e.message, e.stage)
}

func (e *interceptorError) Type() ErrorType { return InterceptorError }
func (e *interceptorError) Unwrap() error   { return e.err }

// IsErrorType reports whether err, or any error it wraps, is a ClientError of type t.
func IsErrorType(err error, t ErrorType) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		if ce, ok := err.(ClientError); ok && ce.Type() == t {
			return true
		}
	}
	return false
}

// IsHTTPStatusError reports whether err is an HTTP error with the given status.
func IsHTTPStatusError(err error, statusCode int) bool {
	var he *httpError
	return errors.As(err, &he) && he.statusCode == statusCode
}

// StatusCodeOf returns the status carried by an HTTP error.
func StatusCodeOf(err error) (int, bool) {
	var he *httpError
	if errors.As(err, &he) {
		return he.statusCode, true
	}
	return 0, false
}

// IsSuccessStatus reports whether status is in the 2xx range.
func IsSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}

// IsCancellation reports whether err ended because a timer or the caller
// stopped the request. Such failures are never retried.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	if IsErrorType(err, TimeoutError) || IsErrorType(err, CancelledError) {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
