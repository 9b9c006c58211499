package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "canban"

// StartPrioritizeSpan starts a span for a prioritization pass.
func StartPrioritizeSpan(ctx context.Context, boardID string, cardCount int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "prioritize",
		trace.WithAttributes(
			attribute.String("board.id", boardID),
			attribute.Int("cards.count", cardCount),
		),
	)
}

// StartBriefingSpan starts a span for a daily briefing build.
func StartBriefingSpan(ctx context.Context) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "briefing")
}

// StartExtractSpan starts a span for a task-extraction call.
func StartExtractSpan(ctx context.Context, boardID string, textLen int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "extract",
		trace.WithAttributes(
			attribute.String("board.id", boardID),
			attribute.Int("text.length", textLen),
		),
	)
}

// StartSuggestSpan starts a span for a card suggestion call.
func StartSuggestSpan(ctx context.Context, cardID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "suggest",
		trace.WithAttributes(attribute.String("card.id", cardID)),
	)
}
