package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/courseshop/internal/models"
	"github.com/fatflowers/courseshop/pkg/apperr"
	"github.com/fatflowers/courseshop/pkg/logctx"
	"github.com/fatflowers/courseshop/pkg/response"
)

const (
	TenantSlugHeader = "X-Tenant-Slug"
	tenantKey        = "tenant"
)

type TenantResolver interface {
	Resolve(ctx context.Context, host, slugHeader string) (*models.Tenant, error)
}

// TenantMiddleware resolves the request tenant from X-Tenant-Slug or the Host
// header. Requests outside any tenant continue without one; lookup failures
// other than not-found abort with 500.
func TenantMiddleware(resolver TenantResolver, base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := resolver.Resolve(c.Request.Context(), c.Request.Host, c.GetHeader(TenantSlugHeader))
		switch {
		case err == nil:
			c.Set(tenantKey, t)
			c.Request = c.Request.WithContext(logctx.WithTenantID(c.Request.Context(), t.ID))
			logctx.Attach(c, logctx.FromGin(c, base).With("tenant_id", t.ID))
		case errors.Is(err, apperr.ErrNotFound):
		default:
			logctx.FromGin(c, base).Errorw("tenant_resolve_failed", "host", c.Request.Host, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.FromError(err))
			return
		}
		c.Next()
	}
}

// TenantFrom returns the resolved tenant or nil.
func TenantFrom(c *gin.Context) *models.Tenant {
	if v, ok := c.Get(tenantKey); ok {
		if t, ok := v.(*models.Tenant); ok {
			return t
		}
	}
	return nil
}

// RequireTenant aborts with 404 when no tenant was resolved.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if TenantFrom(c) == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, response.ErrorT[any](response.APIResponseCodeNotFound, "tenant not found"))
			return
		}
		c.Next()
	}
}
