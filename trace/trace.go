// Package trace carries request identifiers through a context so that every
// outbound API call can be correlated with the log lines it produced.
package trace

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"

	// HeaderXRequestID is the header used to send the request identifier
	HeaderXRequestID = "X-Request-ID"
)

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id, true
	}
	return "", false
}

// EnsureRequestID returns the request ID from ctx or a freshly generated one.
func EnsureRequestID(ctx context.Context) string {
	if id, ok := RequestIDFromContext(ctx); ok {
		return id
	}
	return NewRequestID()
}

// NewRequestID generates a random request identifier.
func NewRequestID() string {
	return uuid.NewString()
}
