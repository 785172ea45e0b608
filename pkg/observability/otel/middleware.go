package otel

import (
	"strconv"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// FastHTTPMiddleware traces requests served by next (inspector, metrics).
// Incoming trace context is honoured and the response carries the server span.
func FastHTTPMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if !IsInitialized() {
			next(ctx)
			return
		}

		propagator := otel.GetTextMapPropagator()
		parent := propagator.Extract(ctx, headerCarrier{&ctx.Request.Header})

		spanCtx, span := StartSpan(parent, "http.request",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethodKey.String(string(ctx.Method())),
				semconv.HTTPTargetKey.String(string(ctx.Path())),
			),
		)
		defer span.End()

		next(ctx)

		status := ctx.Response.StatusCode()
		span.SetAttributes(
			semconv.HTTPStatusCodeKey.Int(status),
			attribute.Int("http.response_size", len(ctx.Response.Body())),
		)
		if status >= 400 {
			span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(status))
		} else {
			span.SetStatus(codes.Ok, "OK")
		}

		propagator.Inject(spanCtx, responseCarrier{&ctx.Response.Header})
	}
}

// headerCarrier adapts fasthttp request headers to propagation.TextMapCarrier
type headerCarrier struct {
	headers *fasthttp.RequestHeader
}

func (c headerCarrier) Get(key string) string {
	return string(c.headers.Peek(key))
}

func (c headerCarrier) Set(key, value string) {
	c.headers.Set(key, value)
}

// Keys is unused by the W3C propagators
func (c headerCarrier) Keys() []string {
	return nil
}

// responseCarrier adapts fasthttp response headers to propagation.TextMapCarrier
type responseCarrier struct {
	headers *fasthttp.ResponseHeader
}

func (c responseCarrier) Get(key string) string {
	return string(c.headers.Peek(key))
}

func (c responseCarrier) Set(key, value string) {
	c.headers.Set(key, value)
}

func (c responseCarrier) Keys() []string {
	return nil
}
