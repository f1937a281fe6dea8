package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/quillhub/backend/internal/util"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware wraps otelgin and tags spans with the caller and the
// route's target ids
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	base := otelgin.Middleware(serviceName)

	return func(c *gin.Context) {
		base(c)

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		if userID := util.OptionalUserID(c); userID != 0 {
			span.SetAttributes(attribute.Int64("user.id", int64(userID)))
		}
		for _, p := range []string{"postId", "commentId", "targetId"} {
			if v := c.Param(p); v != "" {
				span.SetAttributes(attribute.String("quill."+p, v))
			}
		}
		for _, ginErr := range c.Errors {
			if ginErr.Err != nil {
				span.RecordError(ginErr.Err, trace.WithStackTrace(true))
				span.SetStatus(codes.Error, ginErr.Error())
			}
		}
	}
}

// SpanEnrichmentMiddleware sets the span status from the response code
func SpanEnrichmentMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		status := c.Writer.Status()
		switch {
		case status >= 500:
			span.SetStatus(codes.Error, "Server error")
		case status == 404:
			span.SetStatus(codes.Unset, "Not found")
		case status >= 400:
			span.SetStatus(codes.Error, "Client error")
		default:
			span.SetStatus(codes.Ok, "")
		}
		if size := c.Writer.Size(); size > 0 {
			span.SetAttributes(attribute.Int64("http.response.size_bytes", int64(size)))
		}
	}
}
