package checkout

import (
	"context"

	"github.com/fatflowers/courseshop/internal/models"
	"github.com/fatflowers/courseshop/pkg/apperr"
	"github.com/fatflowers/courseshop/pkg/logctx"
	"github.com/fatflowers/courseshop/pkg/types"
)

type OnboardingResult struct {
	AccountID   string `json:"account_id"`
	RedirectURL string `json:"redirect_url"`
}

// StartConnectOnboarding makes sure tenant has a connected account and
// returns a link to the provider's onboarding flow. Capability flags are only
// ever set by account events.
func (s *Service) StartConnectOnboarding(ctx context.Context, tenant *models.Tenant, email string) (*OnboardingResult, error) {
	t, err := s.freshTenant(ctx, tenant)
	if err != nil {
		return nil, err
	}
	lg := logctx.FromCtx(ctx, s.log)

	if t.ExternalConnectAccountID == nil || *t.ExternalConnectAccountID == "" {
		accountID, err := s.gateway.CreateConnectAccount(ctx, t.ID, email)
		if err != nil {
			lg.Errorw("connect_account_create_failed", "tenant_id", t.ID, "err", err)
			return nil, apperr.Internal("create connected account", err)
		}
		res := s.db.WithContext(ctx).Model(&models.Tenant{}).
			Where("id = ? AND external_connect_account_id IS NULL", t.ID).
			Updates(map[string]any{
				"external_connect_account_id": accountID,
				"connect_status":              types.ConnectStatusPending,
			})
		if res.Error != nil {
			return nil, apperr.Internal("save connected account", res.Error)
		}
		if res.RowsAffected == 0 {
			// a concurrent request attached an account first; use that one
			if t, err = s.freshTenant(ctx, t); err != nil {
				return nil, err
			}
		} else {
			t.ExternalConnectAccountID = &accountID
			t.ConnectStatus = types.ConnectStatusPending
			lg.Infow("connect_account_created", "tenant_id", t.ID, "account_id", accountID)
		}
		if err := s.tenants.InvalidateTenant(ctx, t); err != nil {
			lg.Warnw("tenant_cache_invalidate_deferred", "tenant_id", t.ID, "err", err)
		}
	}

	accountID := *t.ExternalConnectAccountID
	url, err := s.gateway.CreateOnboardingLink(ctx, accountID,
		s.storefrontURL(t, s.cfg.Checkout.ConnectRefreshPath),
		s.storefrontURL(t, s.cfg.Checkout.ConnectReturnPath),
	)
	if err != nil {
		lg.Errorw("connect_link_failed", "tenant_id", t.ID, "account_id", accountID, "err", err)
		return nil, apperr.Internal("create onboarding link", err)
	}
	return &OnboardingResult{AccountID: accountID, RedirectURL: url}, nil
}
