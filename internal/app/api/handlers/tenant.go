package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/fatflowers/courseshop/internal/app/api/middleware"
	"github.com/fatflowers/courseshop/internal/app/service/checkout"
	"github.com/fatflowers/courseshop/internal/app/service/statistics"
	"github.com/fatflowers/courseshop/internal/models"
	"github.com/fatflowers/courseshop/pkg/apperr"
	"github.com/fatflowers/courseshop/pkg/response"
	"github.com/fatflowers/courseshop/pkg/types"
)

type TenantBilling interface {
	StartPlanSubscription(ctx context.Context, tenant *models.Tenant, req *checkout.PlanCheckoutRequest) (*checkout.CheckoutResult, error)
	StartConnectOnboarding(ctx context.Context, tenant *models.Tenant, email string) (*checkout.OnboardingResult, error)
}

type HistoryLister interface {
	ListHistory(ctx context.Context, tenantID string, from, size int) ([]*models.SubscriptionHistory, int64, error)
}

type SalesReporter interface {
	GetSalesStatistic(ctx context.Context, req *statistics.SalesStatisticRequest) (*statistics.SalesStatisticResponse, error)
	ScanPayments(ctx context.Context, req *statistics.ScanPaymentsRequest) (*statistics.ScanPaymentsResponse, error)
}

type SubscriptionHistoryQuery struct {
	From int `form:"from"`
	Size int `form:"size"`
}

type SubscriptionHistoryResponse struct {
	Items []*models.SubscriptionHistory `json:"items"`
	Total int64                         `json:"total"`
}

// scopedTenant returns the request tenant when the principal acts for it.
func scopedTenant(c *gin.Context) (*models.Tenant, error) {
	t := mw.TenantFrom(c)
	p := mw.PrincipalFrom(c)
	if t == nil || !p.ActsFor(t.ID) {
		return nil, apperr.Forbidden("not a member of this tenant")
	}
	return t, nil
}

// @Summary      Subscribe to a platform plan
// @Description  Opens a hosted subscription session for the current tenant.
// @Tags         Tenant
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body checkout.PlanCheckoutRequest true "Plan to subscribe to"
// @Success      200  {object}  handlers.RespCheckout
// @Router       /api/v1/tenant/plan/checkout [post]
func ApiPlanCheckout(svc TenantBilling, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkout.PlanCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		tenant, err := scopedTenant(c)
		if err != nil {
			fail(c, log, "plan_checkout_failed", err)
			return
		}
		res, err := svc.StartPlanSubscription(c.Request.Context(), tenant, &req)
		if err != nil {
			fail(c, log, "plan_checkout_failed", err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Start payout onboarding
// @Description  Creates the tenant's connected account if needed and returns the onboarding link.
// @Tags         Tenant
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespOnboarding
// @Router       /api/v1/tenant/connect/onboard [post]
func ApiConnectOnboard(svc TenantBilling, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant, err := scopedTenant(c)
		if err != nil {
			fail(c, log, "connect_onboard_failed", err)
			return
		}
		res, err := svc.StartConnectOnboarding(c.Request.Context(), tenant, mw.PrincipalFrom(c).User.Email)
		if err != nil {
			fail(c, log, "connect_onboard_failed", err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Plan subscription history
// @Description  Lists the applied subscription events of the current tenant, newest first.
// @Tags         Tenant
// @Produce      json
// @Security     BearerAuth
// @Param        from query int false "Offset"
// @Param        size query int false "Page size"
// @Success      200  {object}  handlers.RespSubscriptionHistory
// @Router       /api/v1/tenant/subscription/history [get]
func ApiSubscriptionHistory(svc HistoryLister, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q SubscriptionHistoryQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			badRequest(c, err)
			return
		}
		tenant, err := scopedTenant(c)
		if err != nil {
			fail(c, log, "subscription_history_failed", err)
			return
		}
		items, total, err := svc.ListHistory(c.Request.Context(), tenant.ID, q.From, q.Size)
		if err != nil {
			fail(c, log, "subscription_history_failed", err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(&SubscriptionHistoryResponse{Items: items, Total: total}))
	}
}

// @Summary      Tenant sales statistics
// @Description  Sales statistics restricted to the current tenant.
// @Tags         Tenant
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body statistics.SalesStatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespSalesStatistic
// @Router       /api/v1/tenant/sales_statistic [post]
func ApiTenantSalesStatistic(svc SalesReporter, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.SalesStatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		tenant, err := scopedTenant(c)
		if err != nil {
			fail(c, log, "tenant_sales_statistic_failed", err)
			return
		}
		req.Filters = append(req.Filters, &types.CommonFilter{
			Field:    string(statistics.SalesStatisticFilterTypeTenantID),
			Operator: types.CommonFilterOperatorEq,
			Values:   []any{tenant.ID},
		})
		res, err := svc.GetSalesStatistic(c.Request.Context(), &req)
		if err != nil {
			fail(c, log, "tenant_sales_statistic_failed", err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// RegisterTenantRoutes mounts the tenant back-office API. The group must
// already require a tenant and an owner or superadmin principal acting for it.
func RegisterTenantRoutes(r gin.IRouter, billing TenantBilling, history HistoryLister, sales SalesReporter, log *zap.SugaredLogger) {
	r.POST("/plan/checkout", ApiPlanCheckout(billing, log))
	r.POST("/connect/onboard", ApiConnectOnboard(billing, log))
	r.GET("/subscription/history", ApiSubscriptionHistory(history, log))
	r.POST("/sales_statistic", ApiTenantSalesStatistic(sales, log))
}
