package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fatflowers/courseshop/internal/app/service/entitlement"
	"github.com/fatflowers/courseshop/internal/models"
	stripeclient "github.com/fatflowers/courseshop/internal/platform/stripe"
	"github.com/fatflowers/courseshop/pkg/apperr"
	"github.com/fatflowers/courseshop/pkg/logctx"
	"github.com/fatflowers/courseshop/pkg/metrics"
	"github.com/fatflowers/courseshop/pkg/money"
	"github.com/fatflowers/courseshop/pkg/tool"
	"github.com/fatflowers/courseshop/pkg/types"
)

type CheckoutRequest struct {
	CourseIDs []string `json:"course_ids" binding:"required"`
}

// Checkout buys a batch of courses for user in tenant. A batch without any
// paid course is enrolled immediately. Otherwise the whole batch, free
// courses included, goes through one pending payment and a hosted session.
func (s *Service) Checkout(ctx context.Context, tenant *models.Tenant, user *models.User, req *CheckoutRequest) (*CheckoutResult, error) {
	if tenant == nil {
		return nil, apperr.NotFound("tenant not found")
	}
	if user == nil {
		return nil, apperr.Unauthorized("missing buyer")
	}
	if !tenant.ChargesEnabled {
		return nil, apperr.BadRequest("tenant %s cannot accept payments yet", tenant.Slug)
	}
	var ids []string
	if req != nil {
		ids = lo.Uniq(lo.Compact(req.CourseIDs))
	}
	if len(ids) == 0 {
		return nil, apperr.BadRequest("no courses requested")
	}

	courses, err := s.loadCourses(ctx, tenant.ID, user.ID, ids)
	if err != nil {
		return nil, err
	}

	paid := lo.Filter(courses, func(c *models.Course, _ int) bool { return !c.Free() })
	if len(paid) == 0 {
		return s.enrollFree(ctx, tenant, user, courses)
	}
	return s.startPayment(ctx, tenant, user, courses, paid)
}

// loadCourses returns the requested courses in request order after checking
// they can be bought by the user.
func (s *Service) loadCourses(ctx context.Context, tenantID, userID string, ids []string) ([]*models.Course, error) {
	var found []*models.Course
	if err := s.db.WithContext(ctx).Where("tenant_id = ? AND id IN ?", tenantID, ids).Find(&found).Error; err != nil {
		return nil, apperr.Internal("load courses", err)
	}
	byID := lo.KeyBy(found, func(c *models.Course) string { return c.ID })

	courses := make([]*models.Course, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, apperr.NotFound("course %s not found", id)
		}
		if c.Status != types.CourseStatusPublished {
			return nil, apperr.BadRequest("course %s is not available", id)
		}
		courses = append(courses, c)
	}

	var owned []string
	if err := s.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id IN ?", userID, ids).
		Pluck("course_id", &owned).Error; err != nil {
		return nil, apperr.Internal("load enrollments", err)
	}
	if len(owned) > 0 {
		return nil, apperr.BadRequest("already enrolled in %s", strings.Join(owned, ","))
	}
	return courses, nil
}

func (s *Service) enrollFree(ctx context.Context, tenant *models.Tenant, user *models.User, courses []*models.Course) (*CheckoutResult, error) {
	ids := lo.Map(courses, func(c *models.Course, _ int) string { return c.ID })
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows := lo.Map(courses, func(c *models.Course, _ int) *models.Enrollment {
			return &models.Enrollment{
				ID:               tool.GenerateUUIDV7(),
				UserID:           user.ID,
				CourseID:         c.ID,
				TenantID:         tenant.ID,
				PurchasePrice:    0,
				PurchaseCurrency: c.Currency,
			}
		})
		if err := entitlement.Grant(tx, rows); err != nil {
			return err
		}
		return entitlement.ClearCart(tx, user.ID, ids)
	})
	if err != nil {
		metrics.CheckoutsTotal.WithLabelValues("free", "error").Inc()
		return nil, apperr.Internal("enroll free courses", err)
	}
	metrics.CheckoutsTotal.WithLabelValues("free", "completed").Inc()
	logctx.FromCtx(ctx, s.log).Infow("checkout_free_completed", "tenant_id", tenant.ID, "user_id", user.ID, "courses", len(ids))
	return &CheckoutResult{Status: CheckoutStatusCompleted}, nil
}

func (s *Service) startPayment(ctx context.Context, tenant *models.Tenant, user *models.User, courses, paid []*models.Course) (*CheckoutResult, error) {
	lg := logctx.FromCtx(ctx, s.log)
	if tenant.ExternalConnectAccountID == nil || *tenant.ExternalConnectAccountID == "" {
		return nil, apperr.BadRequest("tenant %s has no payout account", tenant.Slug)
	}
	currency := strings.ToLower(paid[0].Currency)
	for _, c := range paid[1:] {
		if !strings.EqualFold(c.Currency, currency) {
			return nil, apperr.BadRequest("courses must share one currency")
		}
	}

	rate := tenant.CommissionRateBps
	if tenant.Plan == nil && rate == 0 {
		rate = s.cfg.Billing.DefaultCommissionRateBps
	}
	amount := money.Sum(lo.Map(paid, func(c *models.Course, _ int) int64 { return c.Price })...)
	fee := money.PlatformFee(amount, rate)
	ids := lo.Map(courses, func(c *models.Course, _ int) string { return c.ID })

	payment := &models.Payment{
		ID:          tool.GenerateUUIDV7(),
		TenantID:    tenant.ID,
		UserID:      user.ID,
		Amount:      amount,
		PlatformFee: fee,
		Currency:    currency,
		Status:      types.PaymentStatusPending,
		Metadata: datatypes.NewJSONType(&models.PaymentMetadata{
			CourseIDs:         ids,
			CommissionRateBps: rate,
			ConnectAccountID:  *tenant.ExternalConnectAccountID,
		}),
	}
	items := lo.Map(courses, func(c *models.Course, _ int) *models.PaymentItem {
		return &models.PaymentItem{
			ID:                 tool.GenerateUUIDV7(),
			PaymentID:          payment.ID,
			CourseID:           c.ID,
			PriceAtPurchase:    c.Price,
			CurrencyAtPurchase: strings.ToLower(c.Currency),
		}
	})

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payment).Error; err != nil {
			return err
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		metrics.CheckoutsTotal.WithLabelValues("paid", "error").Inc()
		return nil, apperr.Internal("create payment", err)
	}

	successURL := withQuery(s.storefrontURL(tenant, s.cfg.Checkout.SuccessPath), "payment_id", payment.ID)
	session, err := s.gateway.CreatePaymentSession(ctx, &stripeclient.PaymentSessionParams{
		ConnectAccountID: *tenant.ExternalConnectAccountID,
		Currency:         currency,
		LineItems: lo.Map(paid, func(c *models.Course, _ int) stripeclient.LineItem {
			return stripeclient.LineItem{Name: c.Title, Amount: c.Price}
		}),
		ApplicationFee: fee,
		Metadata: map[string]string{
			types.MetadataPaymentID: payment.ID,
			types.MetadataTenantID:  tenant.ID,
			types.MetadataUserID:    user.ID,
			types.MetadataCourseIDs: strings.Join(ids, ","),
		},
		SuccessURL:     successURL,
		CancelURL:      withQuery(s.storefrontURL(tenant, s.cfg.Checkout.CancelPath), "payment_id", payment.ID),
		IdempotencyKey: tool.IdempotencyKey("course-checkout", payment.ID),
	})
	if err != nil {
		lg.Errorw("checkout_session_failed", "payment_id", payment.ID, "err", err)
		s.markFailed(ctx, payment, err)
		metrics.CheckoutsTotal.WithLabelValues("paid", "provider_error").Inc()
		return nil, apperr.Internal("open payment session", err)
	}

	if err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		Update("external_checkout_session_id", session.ID).Error; err != nil {
		// settlement correlates by metadata, so the redirect is still usable
		lg.Errorw("checkout_session_persist_failed", "payment_id", payment.ID, "session_id", session.ID, "err", err)
	}

	metrics.CheckoutsTotal.WithLabelValues("paid", "redirect").Inc()
	lg.Infow("checkout_payment_started",
		"payment_id", payment.ID,
		"tenant_id", tenant.ID,
		"amount", amount,
		"platform_fee", fee,
		"currency", currency,
		"courses", len(ids),
	)
	return &CheckoutResult{
		Status:      CheckoutStatusRedirect,
		RedirectURL: session.URL,
		PaymentID:   payment.ID,
		SessionID:   session.ID,
	}, nil
}

// markFailed moves a still-pending payment to failed. It never touches a
// payment that has already settled.
func (s *Service) markFailed(ctx context.Context, payment *models.Payment, cause error) {
	meta := payment.Metadata.Data()
	meta.Error = cause.Error()
	err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", payment.ID, types.PaymentStatusPending).
		Updates(map[string]any{
			"status":     types.PaymentStatusFailed,
			"metadata":   datatypes.NewJSONType(meta),
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("payment_mark_failed_error", "payment_id", payment.ID, "err", err)
	}
}
