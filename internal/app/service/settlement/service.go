// Package settlement turns a confirmed payment into course enrollments.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/courseshop/internal/app/service/entitlement"
	"github.com/fatflowers/courseshop/internal/models"
	stripeclient "github.com/fatflowers/courseshop/internal/platform/stripe"
	"github.com/fatflowers/courseshop/pkg/apperr"
	"github.com/fatflowers/courseshop/pkg/logctx"
	"github.com/fatflowers/courseshop/pkg/tool"
	"github.com/fatflowers/courseshop/pkg/types"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
	now func() time.Time
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log, now: time.Now}
}

// correlation is the metadata a payment session carries back.
type correlation struct {
	PaymentID string
	TenantID  string
	UserID    string
	CourseIDs []string
}

func parseCorrelation(md map[string]string) (*correlation, error) {
	c := &correlation{
		PaymentID: strings.TrimSpace(md[types.MetadataPaymentID]),
		TenantID:  strings.TrimSpace(md[types.MetadataTenantID]),
		UserID:    strings.TrimSpace(md[types.MetadataUserID]),
		CourseIDs: lo.Compact(lo.Map(strings.Split(md[types.MetadataCourseIDs], ","), func(s string, _ int) string {
			return strings.TrimSpace(s)
		})),
	}
	var missing []string
	if c.PaymentID == "" {
		missing = append(missing, types.MetadataPaymentID)
	}
	if c.TenantID == "" {
		missing = append(missing, types.MetadataTenantID)
	}
	if c.UserID == "" {
		missing = append(missing, types.MetadataUserID)
	}
	if len(c.CourseIDs) == 0 {
		missing = append(missing, types.MetadataCourseIDs)
	}
	if len(missing) > 0 {
		return nil, apperr.BadRequest("checkout metadata missing %s", strings.Join(missing, ","))
	}
	return c, nil
}

// Finalize settles the payment named in ev. Marking the payment succeeded,
// granting enrollments and clearing the cart commit together. Replays of an
// already settled payment re-run the idempotent steps and change nothing.
func (s *Service) Finalize(ctx context.Context, ev stripeclient.CheckoutCompleted) error {
	lg := logctx.FromCtx(ctx, s.log).With("event_id", ev.EventID(), "session_id", ev.SessionID)

	corr, err := parseCorrelation(ev.Metadata)
	if err != nil {
		lg.Errorw("settlement_metadata_invalid", "err", err)
		return err
	}
	lg = lg.With("payment_id", corr.PaymentID, "tenant_id", corr.TenantID)

	var granted int
	var replay bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Payment
		if err := tx.Where("id = ?", corr.PaymentID).Take(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("payment %s not found", corr.PaymentID)
			}
			return err
		}
		if p.TenantID != corr.TenantID || p.UserID != corr.UserID {
			return apperr.BadRequest("payment %s does not match event metadata", p.ID)
		}

		switch p.Status {
		case types.PaymentStatusPending:
			if err := s.markSucceeded(tx, &p, ev); err != nil {
				return err
			}
		case types.PaymentStatusSucceeded:
			replay = true
		default:
			return apperr.BadRequest("payment %s is %s and cannot settle", p.ID, p.Status)
		}

		var items []*models.PaymentItem
		if err := tx.Where("payment_id = ?", p.ID).Find(&items).Error; err != nil {
			return err
		}
		itemCourses := lo.Map(items, func(it *models.PaymentItem, _ int) string { return it.CourseID })
		if extra, missing := lo.Difference(corr.CourseIDs, itemCourses); len(extra) > 0 || len(missing) > 0 {
			lg.Warnw("settlement_course_mismatch", "metadata_only", extra, "items_only", missing)
		}

		rows := lo.Map(items, func(it *models.PaymentItem, _ int) *models.Enrollment {
			return &models.Enrollment{
				ID:               tool.GenerateUUIDV7(),
				UserID:           p.UserID,
				CourseID:         it.CourseID,
				TenantID:         p.TenantID,
				PaymentID:        &p.ID,
				PurchasePrice:    it.PriceAtPurchase,
				PurchaseCurrency: it.CurrencyAtPurchase,
			}
		})
		if err := entitlement.Grant(tx, rows); err != nil {
			return fmt.Errorf("grant enrollments: %w", err)
		}
		granted = len(rows)
		return entitlement.ClearCart(tx, p.UserID, itemCourses)
	})
	if err != nil {
		lg.Errorw("settlement_failed", "err", err)
		if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrBadRequest) {
			return err
		}
		return apperr.Internal("finalize payment", err)
	}
	lg.Infow("payment_settled", "enrollments", granted, "replay", replay)
	return nil
}

func (s *Service) markSucceeded(tx *gorm.DB, p *models.Payment, ev stripeclient.CheckoutCompleted) error {
	updates := map[string]any{
		"status":  types.PaymentStatusSucceeded,
		"paid_at": s.now(),
	}
	if ev.PaymentIntentID != "" {
		updates["external_payment_intent_id"] = ev.PaymentIntentID
	}
	if p.ExternalCheckoutSessionID == nil && ev.SessionID != "" {
		updates["external_checkout_session_id"] = ev.SessionID
	}
	res := tx.Model(&models.Payment{}).
		Where("id = ? AND status = ?", p.ID, types.PaymentStatusPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("payment %s left pending state concurrently", p.ID)
	}
	return nil
}
