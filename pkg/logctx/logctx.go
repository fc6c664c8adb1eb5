// Package logctx carries the request-scoped logger and correlation ids
// between gin handlers and the services they call.
package logctx

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ctxKey string

const (
	loggerKey ctxKey = "logger"
	traceKey  ctxKey = "traceID"
	userKey   ctxKey = "user_id"
	tenantKey ctxKey = "tenant_id"
)

// Keys used on gin.Context.
const (
	GinLogger  = "logger"
	GinTraceID = "traceID"
)

// WithTraceID stores the request trace id on ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey, traceID)
}

// TraceID returns the trace id stored by WithTraceID, or "".
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(traceKey).(string)
	return s
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey, tenantID)
}

// WithLogger stores l on ctx so FromCtx returns it unchanged.
func WithLogger(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// Attach makes l the request logger for both the gin context and the
// request's context.Context.
func Attach(c *gin.Context, l *zap.SugaredLogger) {
	c.Set(GinLogger, l)
	c.Request = c.Request.WithContext(WithLogger(c.Request.Context(), l))
}

// FromGin returns the request logger set by Attach, falling back to FromCtx.
func FromGin(c *gin.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if c == nil {
		return base
	}
	if l, ok := c.Get(GinLogger); ok {
		if lg, ok := l.(*zap.SugaredLogger); ok && lg != nil {
			return lg
		}
	}
	if c.Request == nil {
		return base
	}
	return FromCtx(c.Request.Context(), base)
}

// FromCtx returns the logger stored on ctx, or base enriched with whichever
// of trace_id, tenant_id and user_id ctx carries.
func FromCtx(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if ctx == nil {
		return base
	}
	if lg, ok := ctx.Value(loggerKey).(*zap.SugaredLogger); ok && lg != nil {
		return lg
	}
	var fields []interface{}
	for _, k := range []ctxKey{traceKey, tenantKey, userKey} {
		if v, ok := ctx.Value(k).(string); ok && v != "" {
			name := string(k)
			if k == traceKey {
				name = "trace_id"
			}
			fields = append(fields, name, v)
		}
	}
	if len(fields) > 0 {
		return base.With(fields...)
	}
	return base
}
