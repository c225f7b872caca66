package httpclient

import (
	"maps"
	nethttp "net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/giihelpdesk/helpdesk-client/logger"
)

const defaultMaxPayloadLogBytes = 1024

// Builder assembles a Client.
type Builder struct {
	logger         logger.Logger
	config         *Config
	transport      nethttp.RoundTripper
	limiter        *rate.Limiter
	meterProvider  metric.MeterProvider
	tracerProvider oteltrace.TracerProvider
}

// NewBuilder returns a builder with a 30s timeout and no default headers.
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		logger: log,
		config: &Config{
			Timeout:            30 * time.Second,
			DefaultHeaders:     make(map[string]string),
			MaxPayloadLogBytes: defaultMaxPayloadLogBytes,
			RequestIDHeader:    HeaderXRequestID,
		},
	}
}

// WithTimeout sets the per-attempt timeout.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithDefaultHeader adds a header sent with every request unless the request overrides it.
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor appends a request interceptor.
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor appends a response interceptor.
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithLogPayloads enables debug logs with headers and truncated bodies.
func (b *Builder) WithLogPayloads(enabled bool) *Builder {
	b.config.LogPayloads = enabled
	return b
}

// WithMaxPayloadLogBytes caps logged body previews.
func (b *Builder) WithMaxPayloadLogBytes(n int) *Builder {
	if n > 0 {
		b.config.MaxPayloadLogBytes = n
	}
	return b
}

// WithRequestIDHeader changes the correlation header name.
func (b *Builder) WithRequestIDHeader(header string) *Builder {
	if header != "" {
		b.config.RequestIDHeader = header
	}
	return b
}

// WithRateLimit throttles outbound requests to rps with the given burst.
// A non-positive rps disables throttling.
func (b *Builder) WithRateLimit(rps float64, burst int) *Builder {
	if rps <= 0 {
		b.limiter = nil
		return b
	}
	if burst < 1 {
		burst = 1
	}
	b.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return b
}

// WithTransport replaces the HTTP transport.
func (b *Builder) WithTransport(rt nethttp.RoundTripper) *Builder {
	b.transport = rt
	return b
}

// WithMeterProvider sets where request metrics go (default: the global provider).
func (b *Builder) WithMeterProvider(mp metric.MeterProvider) *Builder {
	b.meterProvider = mp
	return b
}

// WithTracerProvider sets where request spans go (default: the global provider).
func (b *Builder) WithTracerProvider(tp oteltrace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// Build creates the client.
func (b *Builder) Build() Client {
	if b.logger == nil {
		b.logger = logger.Nop()
	}
	mp := b.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	tp := b.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	cfg := *b.config
	cfg.DefaultHeaders = maps.Clone(b.config.DefaultHeaders)
	return &client{
		httpClient:  &nethttp.Client{Transport: b.transport},
		logger:      b.logger,
		config:      &cfg,
		limiter:     b.limiter,
		instruments: newInstruments(mp),
		tracer:      tp.Tracer(instrumentationName),
	}
}
