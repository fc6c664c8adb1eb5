package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/fatflowers/courseshop/pkg/logctx"
	"github.com/fatflowers/courseshop/pkg/tool"
)

const (
	RequestIDHeader = "X-Request-ID"
	maxRequestIDLen = 128
)

// TraceMiddleware assigns the request trace id. A caller-supplied X-Request-ID
// is kept when it is printable ASCII and fits the delivery log column;
// anything else is replaced with a fresh UUIDv7.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(RequestIDHeader)
		if !validRequestID(traceID) {
			traceID = tool.GenerateUUIDV7()
		}
		c.Set(logctx.GinTraceID, traceID)
		c.Request = c.Request.WithContext(logctx.WithTraceID(c.Request.Context(), traceID))
		c.Next()
	}
}

func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x21 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
