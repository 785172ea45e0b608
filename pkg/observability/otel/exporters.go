package otel

import (
	"fmt"
	"io"

	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// newExporter builds the span exporter named by config.Exporter.
// "none" yields a nil exporter.
func newExporter(config Config, out io.Writer) (sdktrace.SpanExporter, error) {
	switch config.Exporter {
	case "jaeger":
		return newJaegerExporter(config.Endpoint)
	case "zipkin":
		return newZipkinExporter(config.Endpoint)
	case "stdout":
		return newStdoutExporter(out)
	case "none":
		return nil, nil
	}
	return nil, fmt.Errorf("unsupported exporter: %s", config.Exporter)
}

func newJaegerExporter(endpoint string) (sdktrace.SpanExporter, error) {
	if endpoint == "" {
		endpoint = "http://localhost:14268/api/traces"
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}
	return exporter, nil
}

func newZipkinExporter(endpoint string) (sdktrace.SpanExporter, error) {
	if endpoint == "" {
		endpoint = "http://localhost:9411/api/v2/spans"
	}

	exporter, err := zipkin.New(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create Zipkin exporter: %w", err)
	}
	return exporter, nil
}

// newStdoutExporter pretty-prints spans to out, for debugging
func newStdoutExporter(out io.Writer) (sdktrace.SpanExporter, error) {
	opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	if out != nil {
		opts = append(opts, stdouttrace.WithWriter(out))
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}
	return exporter, nil
}
