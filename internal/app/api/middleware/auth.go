package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/fatflowers/courseshop/internal/app/service/access"
	"github.com/fatflowers/courseshop/internal/models"
	"github.com/fatflowers/courseshop/pkg/apperr"
	"github.com/fatflowers/courseshop/pkg/logctx"
	"github.com/fatflowers/courseshop/pkg/response"
	"github.com/fatflowers/courseshop/pkg/types"
)

const principalKey = "principal"

type Authenticator interface {
	Derive(ctx context.Context, credential string, tenant *models.Tenant) (*access.Principal, error)
}

// AuthMiddleware authenticates the bearer credential against the tenant set by
// TenantMiddleware and attaches the principal.
func AuthMiddleware(auth Authenticator, base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred := access.BearerToken(c.GetHeader("Authorization"))
		p, err := auth.Derive(c.Request.Context(), cred, TenantFrom(c))
		if err != nil {
			if errors.Is(err, apperr.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, err.Error()))
				return
			}
			logctx.FromGin(c, base).Errorw("auth_failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.FromError(err))
			return
		}

		c.Set(principalKey, p)
		c.Set("user_id", p.User.ID)
		c.Request = c.Request.WithContext(logctx.WithUserID(c.Request.Context(), p.User.ID))
		logctx.Attach(c, logctx.FromGin(c, base).With("user_id", p.User.ID))
		c.Next()
	}
}

func PrincipalFrom(c *gin.Context) *access.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(*access.Principal); ok {
			return p
		}
	}
	return nil
}

// RequireTenantScope aborts with 403 unless the principal acts for the
// request tenant. Mount it after RequireTenant.
func RequireTenantScope(base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := TenantFrom(c)
		if t == nil || !PrincipalFrom(c).ActsFor(t.ID) {
			logctx.FromGin(c, base).Warnw("tenant_scope_denied", "tenant_id", lo.FromPtr(t).ID)
			c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeForbidden, "not a member of this tenant"))
			return
		}
		c.Next()
	}
}

// RequireRole aborts with 403 unless the principal holds one of roles.
func RequireRole(roles ...types.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !PrincipalFrom(c).HasRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeForbidden, "insufficient role"))
			return
		}
		c.Next()
	}
}
