package otel

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/fluxorio/arquebus"

var (
	mu          sync.RWMutex
	tracer      trace.Tracer
	provider    *sdktrace.TracerProvider
	initialized bool
)

// Initialize installs a global tracer provider built from config.
// The "none" exporter leaves tracing disabled.
func Initialize(ctx context.Context, config Config) error {
	return initialize(ctx, config, nil)
}

// InitializeWithWriter is Initialize sending stdout exporter output to out
func InitializeWithWriter(ctx context.Context, config Config, out io.Writer) error {
	return initialize(ctx, config, out)
}

func initialize(ctx context.Context, config Config, out io.Writer) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid OpenTelemetry config: %w", err)
	}
	if IsInitialized() {
		return fmt.Errorf("OpenTelemetry already initialized")
	}

	exporter, err := newExporter(config, out)
	if err != nil {
		return err
	}
	if exporter == nil {
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			attribute.String("environment", config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SampleRate))),
	)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return Use(tp)
}

// Use installs tp as the tracer provider for bus spans, e.g. one backed by a
// span recorder in tests. Shutdown flushes and uninstalls it.
func Use(tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return fmt.Errorf("tracer provider cannot be nil")
	}
	mu.Lock()
	defer mu.Unlock()
	if initialized {
		return fmt.Errorf("OpenTelemetry already initialized")
	}

	otel.SetTracerProvider(tp)
	provider = tp
	tracer = tp.Tracer(instrumentationName)
	initialized = true
	return nil
}

// Tracer returns the installed tracer, or a noop tracer before initialization
func Tracer() trace.Tracer {
	mu.RLock()
	defer mu.RUnlock()
	if tracer == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	return tracer
}

// StartSpan starts a new span
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// IsInitialized returns whether a tracer provider is installed
func IsInitialized() bool {
	mu.RLock()
	defer mu.RUnlock()
	return initialized
}

// Shutdown flushes pending spans and uninstalls the tracer provider
func Shutdown(ctx context.Context) error {
	mu.Lock()
	tp := provider
	provider, tracer, initialized = nil, nil, false
	mu.Unlock()

	if tp == nil {
		return nil
	}
	otel.SetTracerProvider(noop.NewTracerProvider())
	return tp.Shutdown(ctx)
}
