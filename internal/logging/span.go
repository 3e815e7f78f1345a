package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span marks a unit of work inside a request trace. Ending it logs the
// elapsed time with the span's correlation fields.
type Span struct {
	logger *slog.Logger
	start  time.Time
}

// StartSpan derives a child span from the context. The returned context
// carries a logger enriched with trace, span and parent span ids; a
// trace id is minted when the context does not already have one.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := FromContext(ctx)

	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
		ctx = WithTraceID(ctx, traceID)
		logger = logger.With(slog.String("trace_id", traceID))
	}

	spanID := uuid.NewString()
	logger = logger.With(
		slog.String("span_id", spanID),
		slog.String("span_name", name),
	)
	if parent := SpanIDFromContext(ctx); parent != "" {
		logger = logger.With(slog.String("parent_span_id", parent))
	}

	ctx = WithLogger(WithSpanID(ctx, spanID), logger)

	return ctx, &Span{logger: logger, start: time.Now()}
}

// End emits the span's completion entry.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.logger.Info("span completed", slog.Duration("duration", time.Since(s.start)))
}
