package httpclient

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "github.com/giihelpdesk/helpdesk-client/httpclient"

	// Metric names following OpenTelemetry semantic conventions
	metricHTTPClientDuration = "http.client.request.duration" // Histogram in seconds
	metricHTTPClientActive   = "http.client.active_requests"  // UpDownCounter

	attrHTTPRequestMethod  = "http.request.method"
	attrHTTPResponseStatus = "http.response.status_code"
	attrServerAddress      = "server.address"
	attrURLPath            = "url.path"
	attrErrorType          = "error.type"
)

var httpDurationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10, 30,
}

type instruments struct {
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
}

// logMetricError logs a metric initialization error to stderr.
// Metrics failures must not break requests.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize HTTP client metric %s: %v\n", metricName, err)
	}
}

func newInstruments(mp metric.MeterProvider) *instruments {
	meter := mp.Meter(instrumentationName)
	inst := &instruments{}

	var err error
	inst.duration, err = meter.Float64Histogram(
		metricHTTPClientDuration,
		metric.WithDescription("Duration of outbound API requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(httpDurationBuckets...),
	)
	logMetricError(metricHTTPClientDuration, err)

	inst.active, err = meter.Int64UpDownCounter(
		metricHTTPClientActive,
		metric.WithDescription("Number of outbound API requests in flight"),
		metric.WithUnit("{request}"),
	)
	logMetricError(metricHTTPClientActive, err)

	return inst
}

func baseAttributes(method, host string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(attrHTTPRequestMethod, method),
		attribute.String(attrServerAddress, host),
	}
}

func (i *instruments) requestStarted(ctx context.Context, method, host string) {
	if i == nil || i.active == nil {
		return
	}
	i.active.Add(ctx, 1, metric.WithAttributes(baseAttributes(method, host)...))
}

func (i *instruments) requestFinished(ctx context.Context, method, host string) {
	if i == nil || i.active == nil {
		return
	}
	i.active.Add(ctx, -1, metric.WithAttributes(baseAttributes(method, host)...))
}

// recordDuration records one attempt. status is zero when no response arrived.
func (i *instruments) recordDuration(ctx context.Context, method, host string, status int, elapsed time.Duration, err error) {
	if i == nil || i.duration == nil {
		return
	}
	attrs := baseAttributes(method, host)
	if status > 0 {
		attrs = append(attrs, attribute.Int(attrHTTPResponseStatus, status))
	}
	switch {
	case err != nil:
		if ce, ok := err.(ClientError); ok {
			attrs = append(attrs, attribute.String(attrErrorType, ce.Type().String()))
		} else {
			attrs = append(attrs, attribute.String(attrErrorType, "_OTHER"))
		}
	case status >= 400:
		attrs = append(attrs, attribute.String(attrErrorType, strconv.Itoa(status)))
	}
	i.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}
