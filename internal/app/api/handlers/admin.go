package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/courseshop/internal/app/service/statistics"
	"github.com/fatflowers/courseshop/internal/app/service/tenantdir"
	"github.com/fatflowers/courseshop/internal/models"
	"github.com/fatflowers/courseshop/pkg/apperr"
	"github.com/fatflowers/courseshop/pkg/response"
)

type TenantAdmin interface {
	UpdateSettings(ctx context.Context, tenantID string, req *tenantdir.UpdateTenantSettingsRequest) (*models.Tenant, error)
	Invalidate(ctx context.Context, slug string) error
	InvalidateByDomain(ctx context.Context, domain string) error
}

type UserInvalidator interface {
	InvalidateUser(ctx context.Context, id string) error
}

// InvalidateCacheRequest names the cached entries to drop. At least one field is required.
type InvalidateCacheRequest struct {
	Slug   string `json:"slug"`
	Domain string `json:"domain"`
	UserID string `json:"user_id"`
}

// @Summary      Update tenant settings (Admin)
// @Description  Changes a tenant's custom domain, status or name and drops its cached entries.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Tenant id"
// @Param        request body tenantdir.UpdateTenantSettingsRequest true "Settings to change"
// @Success      200  {object}  handlers.RespTenant
// @Router       /api/v1/admin/tenant/{id}/settings [post]
func ApiUpdateTenantSettings(svc TenantAdmin, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req tenantdir.UpdateTenantSettingsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		t, err := svc.UpdateSettings(c.Request.Context(), c.Param("id"), &req)
		if err != nil {
			fail(c, log, "tenant_settings_update_failed", err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(t))
	}
}

// @Summary      Invalidate cached entries (Admin)
// @Description  Drops cached tenant and user entries after an out-of-band write.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body handlers.InvalidateCacheRequest true "Entries to drop"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/cache/invalidate [post]
func ApiInvalidateCache(tenants TenantAdmin, users UserInvalidator, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req InvalidateCacheRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		slug, domain, userID := strings.TrimSpace(req.Slug), strings.TrimSpace(req.Domain), strings.TrimSpace(req.UserID)
		if slug == "" && domain == "" && userID == "" {
			badRequest(c, apperr.BadRequest("one of slug, domain or user_id is required"))
			return
		}
		ctx := c.Request.Context()
		if slug != "" {
			if err := tenants.Invalidate(ctx, slug); err != nil {
				fail(c, log, "cache_invalidate_failed", apperr.Internal("invalidate slug", err))
				return
			}
		}
		if domain != "" {
			if err := tenants.InvalidateByDomain(ctx, domain); err != nil {
				fail(c, log, "cache_invalidate_failed", apperr.Internal("invalidate domain", err))
				return
			}
		}
		if userID != "" {
			if err := users.InvalidateUser(ctx, userID); err != nil {
				fail(c, log, "cache_invalidate_failed", apperr.Internal("invalidate user", err))
				return
			}
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Sales statistics (Admin)
// @Description  Daily and total sales figures across tenants.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body statistics.SalesStatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespSalesStatistic
// @Router       /api/v1/admin/sales_statistic [post]
func ApiSalesStatistic(svc SalesReporter, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.SalesStatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		res, err := svc.GetSalesStatistic(c.Request.Context(), &req)
		if err != nil {
			fail(c, log, "sales_statistic_failed", err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      List payments (Admin)
// @Description  Retrieves a paginated and filterable list of payments.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body statistics.ScanPaymentsRequest true "Filters, pagination and sorting"
// @Success      200  {object}  handlers.RespListPayments
// @Router       /api/v1/admin/list_payments [post]
func ApiListPayments(svc SalesReporter, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.ScanPaymentsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		res, err := svc.ScanPayments(c.Request.Context(), &req)
		if err != nil {
			fail(c, log, "list_payments_failed", err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// RegisterAdminRoutes mounts the platform admin API. The group must already
// require a superadmin principal.
func RegisterAdminRoutes(r gin.IRouter, tenants TenantAdmin, users UserInvalidator, sales SalesReporter, log *zap.SugaredLogger) {
	r.POST("/tenant/:id/settings", ApiUpdateTenantSettings(tenants, log))
	r.POST("/cache/invalidate", ApiInvalidateCache(tenants, users, log))
	r.POST("/sales_statistic", ApiSalesStatistic(sales, log))
	r.POST("/list_payments", ApiListPayments(sales, log))
}
