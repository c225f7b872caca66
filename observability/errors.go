package observability

import "errors"

// ErrInvalidExporter is returned for an exporter other than none, stdout or otlp.
var ErrInvalidExporter = errors.New("observability: exporter must be one of none, stdout, otlp")

// ErrMissingEndpoint is returned when the otlp exporter has no endpoint.
var ErrMissingEndpoint = errors.New("observability: otlp exporter requires an endpoint")
