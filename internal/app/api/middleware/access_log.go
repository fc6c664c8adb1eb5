package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/courseshop/pkg/logctx"
)

// AccessLogMiddleware writes one http_access line per request through the
// request logger. Server errors log at error level and client errors at warn.
func AccessLogMiddleware(base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"resp_bytes", c.Writer.Size(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		lg := logctx.FromGin(c, base)
		switch {
		case status >= http.StatusInternalServerError:
			lg.Errorw("http_access", fields...)
		case status >= http.StatusBadRequest:
			lg.Warnw("http_access", fields...)
		default:
			lg.Infow("http_access", fields...)
		}
	}
}
