// Package tracing adapts trigger.EventRepository to an OpenTelemetry
// span per triggered run, the default backing for C7's tracing envelope.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nneven/runtrigger/engine/trigger"
)

// EventRepository implements trigger.EventRepository by opening an
// OpenTelemetry span for each triggered run and exposing its trace/span
// ids to the callback.
type EventRepository struct {
	tracer trace.Tracer
}

func New() *EventRepository {
	return &EventRepository{tracer: otel.Tracer("runtrigger.trigger")}
}

// TraceEvent implements trigger.EventRepository.
func (e *EventRepository) TraceEvent(
	ctx context.Context,
	taskSlug string,
	opts trigger.TraceEventOptions,
	body func(ctx context.Context, tc trigger.TraceContext) error,
) error {
	ctx, span := e.tracer.Start(ctx, fmt.Sprintf("runtrigger.trigger.%s", taskSlug), trace.WithSpanKind(trace.SpanKindServer), trace.WithAttributes(
		attribute.String("task_slug", taskSlug),
		attribute.Bool("run_is_test", opts.RunIsTest),
		attribute.String("style_icon", opts.StyleIcon),
		attribute.Bool("show_actions", opts.ShowActions),
	))
	defer span.End()
	spanCtx := span.SpanContext()
	tc := trigger.TraceContext{
		TraceID: spanCtx.TraceID().String(),
		SpanID:  spanCtx.SpanID().String(),
	}
	if opts.BatchID != nil {
		span.SetAttributes(attribute.String("batch_id", opts.BatchID.String()))
	}
	if opts.IdempotencyKey != nil {
		span.SetAttributes(attribute.String("idempotency_key", *opts.IdempotencyKey))
	}
	if err := body(ctx, tc); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
