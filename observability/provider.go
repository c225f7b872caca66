// Package observability sets up OpenTelemetry tracing and metrics for the
// client. Spans and request metrics come from the REST transport; they can be
// dropped, printed, or shipped to an OTLP/HTTP collector.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/giihelpdesk/helpdesk-client/config"
)

const (
	defaultMetricInterval = 30 * time.Second

	tracesPath  = "/v1/traces"
	metricsPath = "/v1/metrics"
)

// Provider owns the telemetry pipeline.
type Provider interface {
	TracerProvider() trace.TracerProvider
	MeterProvider() metric.MeterProvider

	// Shutdown flushes pending spans and metrics and stops the exporters.
	Shutdown(ctx context.Context) error
	ForceFlush(ctx context.Context) error
}

// Options tune NewProvider.
type Options struct {
	// Environment is recorded as deployment.environment.name.
	Environment string
	Version     string
	// Writer receives stdout exporter output (default os.Stderr).
	Writer io.Writer
}

type provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	mu             sync.Mutex
}

// NewProvider builds the provider selected by cfg.Exporter. "none" (or empty)
// yields a no-op provider.
func NewProvider(cfg config.ObservabilityConfig, opts Options) (Provider, error) {
	exporterName := strings.ToLower(strings.TrimSpace(cfg.Exporter))
	if exporterName == "" || exporterName == config.ExporterNone {
		return newNoopProvider(), nil
	}

	res, err := newResource(cfg.ServiceName, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var (
		processor      sdktrace.SpanProcessor
		metricExporter sdkmetric.Exporter
	)
	switch exporterName {
	case config.ExporterStdout:
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		spanExporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
		processor = sdktrace.NewSimpleSpanProcessor(spanExporter)
		if metricExporter, err = stdoutmetric.New(stdoutmetric.WithWriter(w), stdoutmetric.WithPrettyPrint()); err != nil {
			return nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
		}
	case config.ExporterOTLP:
		spanExporter, err := newOTLPTraceExporter(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create otlp trace exporter: %w", err)
		}
		processor = sdktrace.NewBatchSpanProcessor(spanExporter)
		if metricExporter, err = newOTLPMetricExporter(cfg.Endpoint); err != nil {
			return nil, fmt.Errorf("failed to create otlp metric exporter: %w", err)
		}
	default:
		return nil, fmt.Errorf("exporter %q: %w", cfg.Exporter, ErrInvalidExporter)
	}

	interval := cfg.MetricInterval
	if interval <= 0 {
		interval = defaultMetricInterval
	}

	return &provider{
		tracerProvider: sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSpanProcessor(processor),
		),
		meterProvider: sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(interval))),
		),
	}, nil
}

func newResource(serviceName string, opts Options) (*resource.Resource, error) {
	if serviceName == "" {
		serviceName = "helpdesk-client"
	}
	attrs := resource.WithAttributes(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(opts.Version),
		semconv.DeploymentEnvironmentName(opts.Environment),
	)
	custom, err := resource.New(context.Background(), attrs)
	if err != nil {
		return nil, err
	}
	return resource.Merge(resource.Default(), custom)
}

// collectorBase splits an endpoint into a URL base ("" for host:port) and a host.
func collectorBase(endpoint string) (base, host string, err error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", "", ErrMissingEndpoint
	}
	if strings.Contains(endpoint, "://") {
		return strings.TrimRight(endpoint, "/"), "", nil
	}
	return "", endpoint, nil
}

// newOTLPTraceExporter accepts "host:port" (sent over TLS) or a collector base URL.
func newOTLPTraceExporter(endpoint string) (sdktrace.SpanExporter, error) {
	base, host, err := collectorBase(endpoint)
	if err != nil {
		return nil, err
	}
	opt := otlptracehttp.WithEndpoint(host)
	if base != "" {
		opt = otlptracehttp.WithEndpointURL(base + tracesPath)
	}
	return otlptracehttp.New(context.Background(), opt)
}

func newOTLPMetricExporter(endpoint string) (sdkmetric.Exporter, error) {
	base, host, err := collectorBase(endpoint)
	if err != nil {
		return nil, err
	}
	opt := otlpmetrichttp.WithEndpoint(host)
	if base != "" {
		opt = otlpmetrichttp.WithEndpointURL(base + metricsPath)
	}
	return otlpmetrichttp.New(context.Background(), opt)
}

// Install makes p the global tracer and meter provider and enables W3C trace
// context and baggage propagation on outbound requests.
func Install(p Provider) {
	otel.SetTracerProvider(p.TracerProvider())
	otel.SetMeterProvider(p.MeterProvider())
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

func (p *provider) TracerProvider() trace.TracerProvider {
	return p.tracerProvider
}

func (p *provider) MeterProvider() metric.MeterProvider {
	return p.meterProvider
}

// Shutdown stops both pipelines; the meter provider exports what it holds first.
func (p *provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if err := p.tracerProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown trace provider: %w", err))
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
	}
	return errors.Join(errs...)
}

func (p *provider) ForceFlush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if err := p.tracerProvider.ForceFlush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush trace provider: %w", err))
	}
	if err := p.meterProvider.ForceFlush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush meter provider: %w", err))
	}
	return errors.Join(errs...)
}
