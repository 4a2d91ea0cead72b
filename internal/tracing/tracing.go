// Package tracing wraps the OpenTelemetry trace API the scheduler uses to
// span each check invocation, trimmed from the teacher's
// internal/infrastructure/tracing.Provider down to the bare trace.Tracer/
// trace.Span surface: checkdag carries no OTLP exporter or SDK dependency
// (nothing in SPEC_FULL.md calls for shipping spans anywhere), so
// StartSpan here runs against whatever TracerProvider the embedding
// process installed — the global no-op one by default — rather than
// constructing and owning one itself the way the teacher's Provider does.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/checkdag/checkdag")

// StartCheckSpan starts a span named for one check invocation, tagged with
// its checkId and type so a process that does install a real
// TracerProvider gets per-check timing for free.
func StartCheckSpan(ctx context.Context, checkID, checkType string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "check."+checkType, trace.WithAttributes(
		attribute.String("checkdag.check_id", checkID),
		attribute.String("checkdag.check_type", checkType),
	))
}

// EndCheckSpan closes span, marking it as errored when err is non-nil.
func EndCheckSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
