package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/docflowhq/docstack/internal/tracing"
)

// TracingMiddleware opens a server span per request, continuing the caller's
// trace when the headers carry one.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		operationName := fmt.Sprintf("%s %s", c.Request.Method, c.FullPath())
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), operationName, c.Request.Header)
		defer span.Finish()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		span.SetTag("http.status_code", c.Writer.Status())
	}
}
