package http

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/ext"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// Trace opens a server span per request; downstream spans and log lines
// pick it up from the request context.
func Trace(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := tracer.StartSpanFromContext(c.Request.Context(), "http.request",
			tracer.ServiceName(service),
			tracer.SpanType(ext.SpanTypeWeb),
			tracer.Tag(ext.HTTPMethod, c.Request.Method),
			tracer.Tag(ext.HTTPURL, c.Request.URL.Path),
		)
		defer span.Finish()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		span.SetTag(ext.ResourceName, c.Request.Method+" "+route)
		span.SetTag(ext.HTTPCode, strconv.Itoa(c.Writer.Status()))
		if len(c.Errors) > 0 {
			span.SetTag(ext.Error, c.Errors.Last().Err)
		}
	}
}

func WithSpan(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	span, ctx2 := tracer.StartSpanFromContext(ctx, name)
	err := fn(ctx2)
	span.Finish(tracer.WithError(err))
	return err
}
