package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BusinessEvents opens spans for domain operations, one level above the
// HTTP and database spans
type BusinessEvents struct {
	tracer trace.Tracer
}

// NewBusinessEvents creates a new business events tracer
func NewBusinessEvents() *BusinessEvents {
	return &BusinessEvents{
		tracer: otel.Tracer("quill.business-events"),
	}
}

// TraceReaction covers one reaction toggle, lock wait included
func (be *BusinessEvents) TraceReaction(ctx context.Context, kind string, targetID, actorID uint, reactionType string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "reaction.toggle",
		trace.WithAttributes(
			attribute.String("reaction.kind", kind),
			attribute.Int64("reaction.target_id", int64(targetID)),
			attribute.Int64("user.id", int64(actorID)),
			attribute.String("reaction.type", reactionType),
		),
	)
}

// TraceCreateComment covers persisting a comment and its fan-out
func (be *BusinessEvents) TraceCreateComment(ctx context.Context, postID, actorID uint, source string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "comment.create",
		trace.WithAttributes(
			attribute.Int64("post.id", int64(postID)),
			attribute.Int64("user.id", int64(actorID)),
			attribute.String("comment.source", source),
		),
	)
}

// TraceNotify covers one notification: the insert and the live push
func (be *BusinessEvents) TraceNotify(ctx context.Context, notificationType string, receiverID uint) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "notification.notify",
		trace.WithAttributes(
			attribute.String("notification.type", notificationType),
			attribute.Int64("notification.receiver_id", int64(receiverID)),
		),
	)
}

// SearchEventAttrs attributes for search operations
type SearchEventAttrs struct {
	Query   string
	Index   string
	Backend string // "elasticsearch" or "database"
}

// TraceSearch creates a span for search operations
func (be *BusinessEvents) TraceSearch(ctx context.Context, attrs SearchEventAttrs) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "search.query",
		trace.WithAttributes(
			attribute.String("search.query", attrs.Query),
			attribute.String("search.index", attrs.Index),
			attribute.String("search.backend", attrs.Backend),
		),
	)
}

// RecordError marks the span failed
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
}

var globalBusinessEvents = NewBusinessEvents()

// GetBusinessEvents returns the shared business events tracer. otel.Tracer
// delegates to whatever provider is installed later, so a package-level
// instance is safe.
func GetBusinessEvents() *BusinessEvents {
	return globalBusinessEvents
}
