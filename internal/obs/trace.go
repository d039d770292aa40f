package obs

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TraceFields returns trace_id/span_id for the active span, if any.
func TraceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

func WithTrace(ctx context.Context, log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	fs := TraceFields(ctx)
	if len(fs) == 0 {
		return log
	}
	return log.With(fs...)
}
