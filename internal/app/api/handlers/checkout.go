package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/fatflowers/courseshop/internal/app/api/middleware"
	"github.com/fatflowers/courseshop/internal/app/service/checkout"
	"github.com/fatflowers/courseshop/internal/models"
	"github.com/fatflowers/courseshop/pkg/response"
)

type Purchaser interface {
	Checkout(ctx context.Context, tenant *models.Tenant, user *models.User, req *checkout.CheckoutRequest) (*checkout.CheckoutResult, error)
}

// @Summary      Checkout courses
// @Description  Buys a batch of courses in the current tenant. A batch of free courses is enrolled at once; otherwise a hosted payment session is opened.
// @Tags         Checkout
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        X-Tenant-Slug header string false "Tenant slug, when not derivable from Host"
// @Param        request body checkout.CheckoutRequest true "Courses to buy"
// @Success      200  {object}  handlers.RespCheckout
// @Router       /api/v1/checkout [post]
func ApiCheckout(svc Purchaser, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkout.CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		res, err := svc.Checkout(c.Request.Context(), mw.TenantFrom(c), mw.PrincipalFrom(c).User, &req)
		if err != nil {
			fail(c, log, "checkout_failed", err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterCheckoutRoutes(r gin.IRouter, svc Purchaser, log *zap.SugaredLogger) {
	r.POST("/checkout", ApiCheckout(svc, log))
}
