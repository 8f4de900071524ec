package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the dicebutton tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("dicebutton")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartClickSpan starts a span for handling one button click.
	// Returns the context with span and the span itself.
	StartClickSpan(ctx context.Context, commandID, flowID string) (context.Context, trace.Span)

	// StartFlowSpan starts a span for creating a new flow.
	StartFlowSpan(ctx context.Context, commandID string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartClickSpan starts a span for handling one button click.
func (m *otelSpanManager) StartClickSpan(ctx context.Context, commandID, flowID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "dicebutton.click",
		trace.WithAttributes(
			attribute.String("command.id", commandID),
			attribute.String("flow.id", flowID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartFlowSpan starts a span for creating a new flow.
func (m *otelSpanManager) StartFlowSpan(ctx context.Context, commandID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "dicebutton.flow.start",
		trace.WithAttributes(
			attribute.String("command.id", commandID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
