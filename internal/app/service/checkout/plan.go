package checkout

import (
	"context"

	"github.com/fatflowers/courseshop/internal/models"
	stripeclient "github.com/fatflowers/courseshop/internal/platform/stripe"
	"github.com/fatflowers/courseshop/pkg/apperr"
	"github.com/fatflowers/courseshop/pkg/logctx"
	"github.com/fatflowers/courseshop/pkg/metrics"
	"github.com/fatflowers/courseshop/pkg/types"
)

type PlanCheckoutRequest struct {
	Plan types.Plan `json:"plan" binding:"required"`
}

// StartPlanSubscription opens a hosted subscription page for tenant. The
// plan is applied later, when the provider reports the subscription.
func (s *Service) StartPlanSubscription(ctx context.Context, tenant *models.Tenant, req *PlanCheckoutRequest) (*CheckoutResult, error) {
	if req == nil {
		return nil, apperr.BadRequest("plan is required")
	}
	if _, err := types.GetPlan(req.Plan); err != nil {
		return nil, apperr.BadRequest("invalid plan %q", req.Plan)
	}
	priceID, err := s.cfg.GetPriceIDByPlan(req.Plan)
	if err != nil {
		return nil, apperr.BadRequest("plan %s is not on sale", req.Plan)
	}

	t, err := s.freshTenant(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if t.SubscriptionStatus != nil && t.SubscriptionStatus.Live() {
		return nil, apperr.BadRequest("tenant already has a %s subscription", *t.SubscriptionStatus)
	}

	params := &stripeclient.SubscriptionSessionParams{
		PriceID: priceID,
		Metadata: map[string]string{
			types.MetadataTenantID: t.ID,
			"plan":                 string(req.Plan),
		},
		SuccessURL: s.storefrontURL(t, s.cfg.Checkout.PlanSuccessPath),
		CancelURL:  s.storefrontURL(t, s.cfg.Checkout.CancelPath),
	}
	// the trial is offered once per tenant
	if t.ExternalSubscriptionID == nil {
		params.TrialDays = s.cfg.Billing.TrialDays
	}
	if t.ExternalCustomerID != nil {
		params.CustomerID = *t.ExternalCustomerID
	}

	session, err := s.gateway.CreateSubscriptionSession(ctx, params)
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("plan_session_failed", "tenant_id", t.ID, "plan", req.Plan, "err", err)
		metrics.CheckoutsTotal.WithLabelValues("plan", "provider_error").Inc()
		return nil, apperr.Internal("open subscription session", err)
	}
	metrics.CheckoutsTotal.WithLabelValues("plan", "redirect").Inc()
	logctx.FromCtx(ctx, s.log).Infow("plan_checkout_started", "tenant_id", t.ID, "plan", req.Plan, "trial_days", params.TrialDays)
	return &CheckoutResult{Status: CheckoutStatusRedirect, RedirectURL: session.URL, SessionID: session.ID}, nil
}
