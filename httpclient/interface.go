package httpclient

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/giihelpdesk/helpdesk-client/trace"
)

// HeaderXRequestID is the default header carrying the request identifier.
const HeaderXRequestID = trace.HeaderXRequestID

// Client defines the REST client used to reach the account API.
// Every call is a single attempt; see Retry for repeated attempts.
type Client interface {
	Get(ctx context.Context, req *Request) (*Response, error)
	Post(ctx context.Context, req *Request) (*Response, error)
	Put(ctx context.Context, req *Request) (*Response, error)
	Patch(ctx context.Context, req *Request) (*Response, error)
	Delete(ctx context.Context, req *Request) (*Response, error)
	Do(ctx context.Context, method string, req *Request) (*Response, error)
}

// Request represents an outbound call.
type Request struct {
	URL string
	// Headers override the client's default headers, matched case-insensitively.
	Headers map[string]string
	Body    []byte
}

// Response is what came back, including for non-2xx statuses.
type Response struct {
	StatusCode int
	// StatusText is the reason phrase, e.g. "Not Found".
	StatusText string
	Body       []byte
	Headers    nethttp.Header
	Stats      Stats
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	CallCount   int64
}

// RequestInterceptor is called before sending the request
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after receiving the response
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// Config holds the REST client configuration
type Config struct {
	// Timeout bounds each attempt; zero disables the timer.
	Timeout              time.Duration
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	DefaultHeaders       map[string]string
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	// RequestIDHeader names the correlation header (default: X-Request-ID)
	RequestIDHeader string
}

// WithTraceID stores a request identifier in ctx for propagation.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return trace.WithRequestID(ctx, traceID)
}

// TraceIDFromContext returns the request identifier in ctx, if any.
func TraceIDFromContext(ctx context.Context) (string, bool) { return trace.RequestIDFromContext(ctx) }

// EnsureTraceID returns the identifier from ctx or generates one.
func EnsureTraceID(ctx context.Context) string { return trace.EnsureRequestID(ctx) }

// NewTraceIDInterceptor creates a request interceptor that adds the X-Request-ID header
func NewTraceIDInterceptor() RequestInterceptor {
	return NewTraceIDInterceptorFor(HeaderXRequestID)
}

// NewTraceIDInterceptorFor creates an interceptor that uses a custom header name
func NewTraceIDInterceptorFor(header string) RequestInterceptor {
	if header == "" {
		header = HeaderXRequestID
	}
	return func(ctx context.Context, req *nethttp.Request) error {
		if req.Header.Get(header) == "" {
			req.Header.Set(header, EnsureTraceID(ctx))
		}
		return nil
	}
}
