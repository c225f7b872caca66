package observability

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/giihelpdesk/helpdesk-client/config"
)

func TestNewProviderNone(t *testing.T) {
	for _, exporter := range []string{"", "none", " NONE "} {
		p, err := NewProvider(config.ObservabilityConfig{Exporter: exporter}, Options{})
		require.NoError(t, err)
		assert.IsType(t, &noopProvider{}, p)
		assert.NoError(t, p.ForceFlush(context.Background()))
		assert.NoError(t, p.Shutdown(context.Background()))
	}
}

func TestNewProviderStdoutWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProvider(
		config.ObservabilityConfig{Exporter: config.ExporterStdout, ServiceName: "helpdesk-test"},
		Options{Environment: "testing", Version: "1.2.3", Writer: &buf},
	)
	require.NoError(t, err)

	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "GET /account-me")
	span.End()

	require.NoError(t, p.ForceFlush(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "GET /account-me")
	assert.Contains(t, out, "helpdesk-test")
	assert.Contains(t, out, "testing")
}

func TestNewProviderOTLP(t *testing.T) {
	for _, endpoint := range []string{"localhost:4318", "http://localhost:4318/"} {
		p, err := NewProvider(config.ObservabilityConfig{Exporter: config.ExporterOTLP, Endpoint: endpoint}, Options{})
		require.NoError(t, err, endpoint)
		assert.NotNil(t, p.TracerProvider())
		assert.IsType(t, &sdkmetric.MeterProvider{}, p.MeterProvider())
		require.NoError(t, p.Shutdown(context.Background()))
	}
}

func TestNewProviderStdoutExportsMetricsOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProvider(
		config.ObservabilityConfig{Exporter: config.ExporterStdout, MetricInterval: time.Hour},
		Options{Writer: &buf},
	)
	require.NoError(t, err)

	hist, err := p.MeterProvider().Meter("helpdesk").Float64Histogram("http.client.request.duration")
	require.NoError(t, err)
	hist.Record(context.Background(), 0.25)

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "http.client.request.duration")
}

func TestNewProviderErrors(t *testing.T) {
	_, err := NewProvider(config.ObservabilityConfig{Exporter: "jaeger"}, Options{})
	assert.ErrorIs(t, err, ErrInvalidExporter)

	_, err = NewProvider(config.ObservabilityConfig{Exporter: config.ExporterOTLP}, Options{})
	assert.ErrorIs(t, err, ErrMissingEndpoint)
}

func TestInstallSetsGlobals(t *testing.T) {
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	p := newNoopProvider()
	Install(p)

	assert.Equal(t, p.TracerProvider(), otel.GetTracerProvider())
	assert.ElementsMatch(t, []string{"traceparent", "tracestate", "baggage"}, otel.GetTextMapPropagator().Fields())
}
