package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/observability"
)

// Attribute keys
const (
	AttrOpID    = "arbiter.op_id"
	AttrRunID   = "arbiter.run_id"
	AttrCommand = "arbiter.command"
	AttrTool    = "arbiter.tool"
	AttrRuleID  = "arbiter.rule_id"
	AttrPassed  = "arbiter.passed"
)

// StartSpan opens a span named "arbiter.<name>" when tracing is enabled. The
// returned func ends it, recording err if non-nil. Without a Handle in ctx
// both are no-ops.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	h := From(ctx)
	if h == nil || h.Tracer == nil {
		return ctx, func(error) {}
	}

	base := []attribute.KeyValue{attribute.String(AttrOpID, observability.OpID(ctx))}
	if runID := observability.RunID(ctx); runID != "" {
		base = append(base, attribute.String(AttrRunID, runID))
	}
	ctx, span := h.Tracer.Start(ctx, "arbiter."+name, trace.WithAttributes(append(base, attrs...)...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed")
		} else {
			span.SetStatus(codes.Ok, "success")
		}
		span.End()
	}
}

// Annotate adds attributes to the active span, if any.
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
