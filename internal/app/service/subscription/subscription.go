// Package subscription applies platform plan subscription events to tenants
// and keeps the transition ledger.
package subscription

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/courseshop/internal/app/service/tenantdir"
	"github.com/fatflowers/courseshop/internal/models"
	stripeclient "github.com/fatflowers/courseshop/internal/platform/stripe"
	"github.com/fatflowers/courseshop/pkg/apperr"
	cfgpkg "github.com/fatflowers/courseshop/pkg/config"
	"github.com/fatflowers/courseshop/pkg/logctx"
	"github.com/fatflowers/courseshop/pkg/tool"
	"github.com/fatflowers/courseshop/pkg/types"
)

type Service struct {
	db      *gorm.DB
	log     *zap.SugaredLogger
	cfg     *cfgpkg.Config
	tenants tenantdir.Invalidator
}

func NewService(db *gorm.DB, cfg *cfgpkg.Config, tenants tenantdir.Invalidator, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log, cfg: cfg, tenants: tenants}
}

// HasApplied reports whether the ledger already holds eventID.
func (s *Service) HasApplied(ctx context.Context, eventID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.SubscriptionHistory{}).
		Where("external_event_id = ?", eventID).
		Count(&n).Error
	if err != nil {
		return false, apperr.Internal("check subscription ledger", err)
	}
	return n > 0, nil
}

// transition is one tenant write plus its ledger row.
type transition struct {
	eventID        string
	eventType      types.SubscriptionEventType
	subscriptionID string
	payload        []byte
	// apply sets the new state on the tenant copy and returns the columns to write
	apply func(t *models.Tenant) map[string]any
}

// ApplyChange applies a created or updated subscription event. It returns
// false when the event id is already in the ledger.
func (s *Service) ApplyChange(ctx context.Context, ev stripeclient.SubscriptionChanged) (bool, error) {
	lg := logctx.FromCtx(ctx, s.log).With("event_id", ev.EventID(), "subscription_id", ev.SubscriptionID)

	tenantID := strings.TrimSpace(ev.Metadata[types.MetadataTenantID])
	if tenantID == "" {
		lg.Errorw("subscription_event_without_tenant")
		return false, apperr.BadRequest("subscription %s carries no tenant_id", ev.SubscriptionID)
	}
	status, err := MapStatus(ev.Status)
	if err != nil {
		lg.Errorw("subscription_status_unmapped", "status", ev.Status)
		return false, apperr.BadRequest("%s", err.Error())
	}
	plan, err := s.cfg.GetPlanByPriceID(ev.PriceID)
	if err != nil {
		lg.Errorw("subscription_price_unknown", "price_id", ev.PriceID)
		return false, apperr.BadRequest("%s", err.Error())
	}
	def, err := types.GetPlan(plan)
	if err != nil {
		return false, apperr.Internal("plan catalogue", err)
	}

	return s.record(ctx, tenantID, transition{
		eventID:        ev.EventID(),
		eventType:      ev.Action,
		subscriptionID: ev.SubscriptionID,
		payload:        ev.Payload,
		apply: func(t *models.Tenant) map[string]any {
			subID := ev.SubscriptionID
			t.ExternalSubscriptionID = &subID
			t.Plan = &def.ID
			t.SubscriptionStatus = &status
			t.CommissionRateBps = def.CommissionRateBps
			t.TrialEndsAt = ev.TrialEnd
			cols := map[string]any{
				"external_subscription_id": subID,
				"plan":                     def.ID,
				"subscription_status":      status,
				"commission_rate_bps":      def.CommissionRateBps,
				"trial_ends_at":            ev.TrialEnd,
			}
			if ev.CustomerID != "" {
				cust := ev.CustomerID
				t.ExternalCustomerID = &cust
				cols["external_customer_id"] = cust
			}
			return cols
		},
	})
}

// ApplyDeleted cancels the tenant's subscription. The plan is kept so history
// and reactivation can refer to it.
func (s *Service) ApplyDeleted(ctx context.Context, ev stripeclient.SubscriptionDeleted) (bool, error) {
	lg := logctx.FromCtx(ctx, s.log).With("event_id", ev.EventID(), "subscription_id", ev.SubscriptionID)

	tenantID := strings.TrimSpace(ev.Metadata[types.MetadataTenantID])
	if tenantID == "" {
		lg.Errorw("subscription_event_without_tenant")
		return false, apperr.BadRequest("subscription %s carries no tenant_id", ev.SubscriptionID)
	}
	canceled := types.SubscriptionStatusCanceled
	return s.record(ctx, tenantID, transition{
		eventID:        ev.EventID(),
		eventType:      types.SubscriptionEventDeleted,
		subscriptionID: ev.SubscriptionID,
		payload:        ev.Payload,
		apply: func(t *models.Tenant) map[string]any {
			t.SubscriptionStatus = &canceled
			return map[string]any{"subscription_status": canceled}
		},
	})
}

func (s *Service) record(ctx context.Context, tenantID string, tr transition) (bool, error) {
	lg := logctx.FromCtx(ctx, s.log).With("event_id", tr.eventID, "tenant_id", tenantID)

	var before, after models.Tenant
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", tenantID).Take(&before).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("tenant %s not found", tenantID)
			}
			return err
		}
		after = before
		cols := tr.apply(&after)

		row := &models.SubscriptionHistory{
			ID:                     tool.GenerateUUIDV7(),
			TenantID:               tenantID,
			ExternalSubscriptionID: tr.subscriptionID,
			ExternalEventID:        tr.eventID,
			PreviousPlan:           before.Plan,
			NewPlan:                after.Plan,
			PreviousStatus:         before.SubscriptionStatus,
			NewStatus:              *after.SubscriptionStatus,
			EventType:              tr.eventType,
		}
		if len(tr.payload) > 0 {
			row.RawEventPayload = datatypes.JSON(tr.payload)
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_event_id"}},
			DoNothing: true,
		}).Create(row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// a concurrent delivery of the same event got there first
			return nil
		}
		applied = true
		cols["updated_at"] = time.Now()
		return tx.Model(&models.Tenant{}).Where("id = ?", tenantID).Updates(cols).Error
	})
	if err != nil {
		lg.Errorw("subscription_transition_failed", "err", err)
		if errors.Is(err, apperr.ErrNotFound) {
			return false, err
		}
		return false, apperr.Internal("apply subscription transition", err)
	}
	if !applied {
		lg.Infow("subscription_event_duplicate")
		return false, nil
	}

	if err := s.tenants.InvalidateTenant(ctx, &after); err != nil {
		lg.Warnw("tenant_cache_invalidate_deferred", "tenant_id", after.ID, "err", err)
	}
	lg.Infow("subscription_transition_applied",
		"event_type", tr.eventType,
		"previous_plan", ptrString(before.Plan),
		"new_plan", ptrString(after.Plan),
		"previous_status", ptrString(before.SubscriptionStatus),
		"new_status", ptrString(after.SubscriptionStatus),
	)
	return true, nil
}

// ListHistory returns the tenant's ledger, newest first.
func (s *Service) ListHistory(ctx context.Context, tenantID string, from, size int) ([]*models.SubscriptionHistory, int64, error) {
	if size <= 0 || size > 100 {
		size = 20
	}
	if from < 0 {
		from = 0
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.SubscriptionHistory{}).
		Where("tenant_id = ?", tenantID).
		Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("count subscription history", err)
	}
	var rows []*models.SubscriptionHistory
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("created_at DESC").Order("id DESC").Offset(from).Limit(size).Find(&rows).Error; err != nil {
		return nil, 0, apperr.Internal("list subscription history", err)
	}
	return rows, total, nil
}

func ptrString[T ~string](p *T) string {
	if p == nil {
		return ""
	}
	return string(*p)
}
