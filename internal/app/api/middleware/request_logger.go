package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/courseshop/pkg/logctx"
)

// RequestLoggerMiddleware attaches a logger tagged with trace_id and the
// request host, and echoes the trace id back in X-Request-ID. Tenant and
// auth middleware enrich the same logger further down the chain.
func RequestLoggerMiddleware(base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetString(logctx.GinTraceID)
		fields := []interface{}{"host", c.Request.Host}
		if traceID != "" {
			fields = append(fields, "trace_id", traceID)
			c.Writer.Header().Set(RequestIDHeader, traceID)
		}
		logctx.Attach(c, base.With(fields...))
		c.Next()
	}
}
