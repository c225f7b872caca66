// Package testing provides in-memory OpenTelemetry providers and assertion
// helpers for tests of instrumented helpdesk client code.
//
//	tp := NewTestTraceProvider()
//	defer tp.Shutdown(context.Background())
//	client := httpclient.NewBuilder(log).WithTracerProvider(tp).Build()
//	...
//	spans := tp.Exporter.GetSpans()
package testing

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const metricNotFoundErrMsg = "metric %s not found"

// TestTraceProvider wraps the SDK TracerProvider and in-memory exporter for testing.
type TestTraceProvider struct {
	*sdktrace.TracerProvider
	Exporter *tracetest.InMemoryExporter
}

// NewTestTraceProvider creates a TracerProvider that exports synchronously to memory.
func NewTestTraceProvider() *TestTraceProvider {
	exporter := tracetest.NewInMemoryExporter()
	return &TestTraceProvider{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)),
		Exporter:       exporter,
	}
}

// TestMeterProvider wraps the SDK MeterProvider and manual reader for testing.
type TestMeterProvider struct {
	*sdkmetric.MeterProvider
	Reader *sdkmetric.ManualReader
}

// NewTestMeterProvider creates a MeterProvider read on demand with Collect.
func NewTestMeterProvider() *TestMeterProvider {
	reader := sdkmetric.NewManualReader()
	return &TestMeterProvider{
		MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		Reader:        reader,
	}
}

// Collect reads all metrics from the provider.
func (tmp *TestMeterProvider) Collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, tmp.Reader.Collect(context.Background(), &rm), "failed to collect metrics")
	return rm
}

// SpanAttribute returns the value of key on span.
func SpanAttribute(span tracetest.SpanStub, key string) (attribute.Value, bool) {
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			return attr.Value, true
		}
	}
	return attribute.Value{}, false
}

// AssertSpanAttribute asserts that span carries key with the expected string, int or bool value.
func AssertSpanAttribute(t *testing.T, span tracetest.SpanStub, key string, expected any) {
	t.Helper()
	value, ok := SpanAttribute(span, key)
	if !ok {
		t.Errorf("attribute %s not found in span %s", key, span.Name)
		return
	}
	switch v := expected.(type) {
	case string:
		assert.Equal(t, v, value.AsString(), "attribute %s value mismatch", key)
	case int:
		assert.Equal(t, int64(v), value.AsInt64(), "attribute %s value mismatch", key)
	case bool:
		assert.Equal(t, v, value.AsBool(), "attribute %s value mismatch", key)
	default:
		t.Fatalf("unsupported attribute value type: %T", expected)
	}
}

// AssertSpanError asserts an error status on span.
func AssertSpanError(t *testing.T, span tracetest.SpanStub) {
	t.Helper()
	assert.Equal(t, codes.Error, span.Status.Code, "expected error status on span %s", span.Name)
}

// FindMetric finds a metric by name. Returns nil if not found.
func FindMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// HistogramCount returns the number of recordings across all data points of a float histogram.
func HistogramCount(rm metricdata.ResourceMetrics, name string) (uint64, error) {
	m := FindMetric(rm, name)
	if m == nil {
		return 0, fmt.Errorf(metricNotFoundErrMsg, name)
	}
	data, ok := m.Data.(metricdata.Histogram[float64])
	if !ok {
		return 0, fmt.Errorf("metric %s is not a float64 histogram", name)
	}
	var total uint64
	for _, dp := range data.DataPoints {
		total += dp.Count
	}
	return total, nil
}

// SumValue returns the total of an int64 sum across all data points.
func SumValue(rm metricdata.ResourceMetrics, name string) (int64, error) {
	m := FindMetric(rm, name)
	if m == nil {
		return 0, fmt.Errorf(metricNotFoundErrMsg, name)
	}
	data, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return 0, fmt.Errorf("metric %s is not an int64 sum", name)
	}
	var total int64
	for _, dp := range data.DataPoints {
		total += dp.Value
	}
	return total, nil
}
