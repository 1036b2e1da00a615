package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTracerName is used when no tracer name is configured.
const DefaultTracerName = "github.com/vango-dev/vtemplate"

// Tracer starts spans for template operations. Spans go to the global
// tracer provider, so nothing is exported until one is installed.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer returns a tracer named name.
func NewTracer(name string) *Tracer {
	if name == "" {
		name = DefaultTracerName
	}
	return &Tracer{tracer: otel.Tracer(name)}
}

// Start starts a span named "vtemplate.<operation>".
func (t *Tracer) Start(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("vtemplate.operation", operation))
	return t.tracer.Start(ctx, "vtemplate."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// End records err on the span and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("vtemplate.error_kind", ErrorKind(err)))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
