package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/fluxorio/arquebus/pkg/bus"
	"github.com/fluxorio/arquebus/pkg/core"
)

const messagingSystem = "arquebus"

// PublishWithSpan publishes data inside a producer span
func PublishWithSpan[K comparable, M any](ctx context.Context, b *bus.Bus[K, M], target K, data M) error {
	if !IsInitialized() {
		return b.Publish(ctx, target, data)
	}

	spanCtx, span := startBusSpan(ctx, "bus.publish", trace.SpanKindProducer, fmt.Sprint(target), "publish")
	defer span.End()

	err := b.Publish(spanCtx, target, data)
	endSpan(span, err)
	return err
}

// ListenWithSpan collects messages published to target until ctx is done, inside a consumer span
func ListenWithSpan[K comparable, M any](ctx context.Context, b *bus.Bus[K, M], target K, cfg *bus.ListenerConfig) ([]M, error) {
	if !IsInitialized() {
		return b.Listen(ctx, target, cfg)
	}

	spanCtx, span := startBusSpan(ctx, "bus.listen", trace.SpanKindConsumer, fmt.Sprint(target), "receive")
	defer span.End()

	msgs, err := b.Listen(spanCtx, target, cfg)
	span.SetAttributes(attribute.Int("messaging.message_count", len(msgs)))
	endSpan(span, err)
	return msgs, err
}

// WrapHandler runs handler inside a consumer span per delivery.
// Tracing state is checked per call, so wrapping before Initialize is fine.
func WrapHandler[M any](target string, handler bus.Handler[M]) bus.Handler[M] {
	return func(ctx context.Context, msg M) error {
		if !IsInitialized() {
			return handler(ctx, msg)
		}

		spanCtx, span := startBusSpan(ctx, "bus.process", trace.SpanKindConsumer, target, "process")
		defer span.End()

		err := handler(spanCtx, msg)
		endSpan(span, err)
		return err
	}
}

func startBusSpan(ctx context.Context, name string, kind trace.SpanKind, target, operation string) (context.Context, trace.Span) {
	spanCtx, span := StartSpan(ctx, name,
		trace.WithSpanKind(kind),
		trace.WithAttributes(
			semconv.MessagingSystemKey.String(messagingSystem),
			semconv.MessagingDestinationKey.String(target),
			semconv.MessagingOperationKey.String(operation),
		),
	)

	if requestID := core.GetRequestID(ctx); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	return spanCtx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "OK")
}
