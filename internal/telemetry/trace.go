package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartCommandSpan creates a span for a CLI command execution.
//
//	ctx, span := telemetry.StartCommandSpan(ctx, "doctors list")
//	defer span.End()
func StartCommandSpan(ctx context.Context, cmdName string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "command."+cmdName,
		trace.WithAttributes(
			attribute.String("command", cmdName),
			attribute.String("component", "cli"),
		),
	)
}

// StartRequestSpan creates a client span for one backend request.
func StartRequestSpan(ctx context.Context, method, path string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "http."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.target", path),
			attribute.String("component", "api"),
		),
	)
}

// StartOperationSpan creates a span for a resource controller operation such
// as "doctors.create".
func StartOperationSpan(ctx context.Context, resource, operation string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, resource+"."+operation,
		trace.WithAttributes(
			attribute.String("resource", resource),
			attribute.String("operation", operation),
			attribute.String("component", "resource"),
		),
	)
}

// RecordSuccess marks a span as successful with optional result attributes.
func RecordSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Ok, "")
}

// RecordStatus attaches an HTTP status code to span.
func RecordStatus(span trace.Span, status int) {
	span.SetAttributes(attribute.Int("http.status_code", status))
}

// RecordError records an error in a span and sets error status.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.Bool("error", true))
}
