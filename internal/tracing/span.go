package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on spans.
const (
	AttrOperation = attribute.Key("issuecrank.operation")
	AttrProjectID = attribute.Key("issuecrank.project_id")
	AttrIssueID   = attribute.Key("issuecrank.issue_id")
	AttrRunID     = attribute.Key("issuecrank.run_id")
	AttrPage      = attribute.Key("issuecrank.page")
)

// StartUnitSpan starts a client span for one API operation such as
// "create-issue" or "fetch-issue".
func StartUnitSpan(ctx context.Context, tracer trace.Tracer, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, operation,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(AttrOperation.String(operation))
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

// StartRunSpan starts the internal root span of a workflow.
func StartRunSpan(ctx context.Context, tracer trace.Tracer, workflow, runID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, workflow,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(AttrRunID.String(runID)),
	)
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
