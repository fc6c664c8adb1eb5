// Package connect keeps tenant payout capability in step with the
// provider's connected-account snapshots.
package connect

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/courseshop/internal/app/service/tenantdir"
	"github.com/fatflowers/courseshop/internal/models"
	stripeclient "github.com/fatflowers/courseshop/internal/platform/stripe"
	"github.com/fatflowers/courseshop/pkg/apperr"
	"github.com/fatflowers/courseshop/pkg/logctx"
	"github.com/fatflowers/courseshop/pkg/types"
)

type Service struct {
	db      *gorm.DB
	log     *zap.SugaredLogger
	tenants tenantdir.Invalidator
}

func NewService(db *gorm.DB, tenants tenantdir.Invalidator, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log, tenants: tenants}
}

// DeriveStatus computes the connect status from the account flags alone.
func DeriveStatus(chargesEnabled, payoutsEnabled bool, disabledReason string) types.ConnectStatus {
	switch {
	case chargesEnabled && payoutsEnabled:
		return types.ConnectStatusActive
	case disabledReason != "":
		return types.ConnectStatusRestricted
	default:
		return types.ConnectStatusPending
	}
}

// Reconcile writes the capability flags of the tenant owning ev.AccountID.
// Replaying the same snapshot writes the same values.
func (s *Service) Reconcile(ctx context.Context, ev stripeclient.AccountUpdated) error {
	lg := logctx.FromCtx(ctx, s.log).With("event_id", ev.EventID(), "account_id", ev.AccountID)
	accountID := strings.TrimSpace(ev.AccountID)
	if accountID == "" {
		lg.Errorw("account_event_without_account")
		return apperr.BadRequest("account event carries no account id")
	}

	var t models.Tenant
	err := s.db.WithContext(ctx).Where("external_connect_account_id = ?", accountID).Take(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		lg.Warnw("account_event_unknown_account")
		return apperr.NotFound("no tenant for account %s", accountID)
	}
	if err != nil {
		return apperr.Internal("load tenant by account", err)
	}

	status := DeriveStatus(ev.ChargesEnabled, ev.PayoutsEnabled, ev.DisabledReason)
	if err := s.db.WithContext(ctx).Model(&models.Tenant{}).Where("id = ?", t.ID).Updates(map[string]any{
		"charges_enabled": ev.ChargesEnabled,
		"payouts_enabled": ev.PayoutsEnabled,
		"connect_status":  status,
	}).Error; err != nil {
		return apperr.Internal("update connect status", err)
	}
	if err := s.tenants.InvalidateTenant(ctx, &t); err != nil {
		lg.Warnw("tenant_cache_invalidate_deferred", "tenant_id", t.ID, "err", err)
	}

	lg.Infow("connect_account_reconciled",
		"tenant_id", t.ID,
		"charges_enabled", ev.ChargesEnabled,
		"payouts_enabled", ev.PayoutsEnabled,
		"connect_status", status,
		"previous_status", t.ConnectStatus,
	)
	return nil
}
