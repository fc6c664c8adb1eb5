package checkout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/courseshop/internal/models"
	"github.com/fatflowers/courseshop/internal/platform/db/dbtest"
	"github.com/fatflowers/courseshop/pkg/apperr"
	cfgpkg "github.com/fatflowers/courseshop/pkg/config"
	"github.com/fatflowers/courseshop/pkg/money"
	"github.com/fatflowers/courseshop/pkg/tool"
	"github.com/fatflowers/courseshop/pkg/types"
)

func testConfig() *cfgpkg.Config {
	return &cfgpkg.Config{
		Tenant: cfgpkg.TenantConfig{BaseDomain: "academy.test", Scheme: "https"},
		Billing: cfgpkg.BillingConfig{
			TrialDays:                7,
			DefaultCommissionRateBps: 1000,
			PlanPrices: []*types.PlanPrice{
				{PriceID: "price_starter", Plan: types.PlanStarter},
				{PriceID: "price_growth", Plan: types.PlanGrowth},
			},
		},
		Checkout: cfgpkg.CheckoutConfig{
			SuccessPath:        "/checkout/success",
			CancelPath:         "/checkout/cancel",
			PlanSuccessPath:    "/admin/billing",
			ConnectReturnPath:  "/admin/payouts",
			ConnectRefreshPath: "/admin/payouts/refresh",
		},
	}
}

type fixture struct {
	svc     *Service
	db      *gorm.DB
	gateway *fakeGateway
	cache   *fakeInvalidator
	tenant  *models.Tenant
	buyer   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := dbtest.New(t)
	gw := &fakeGateway{}
	inv := &fakeInvalidator{}
	tn := dbtest.Tenant(t, gdb, "acme")
	return &fixture{
		svc:     NewService(gdb, testConfig(), gw, inv, zap.NewNop().Sugar()),
		db:      gdb,
		gateway: gw,
		cache:   inv,
		tenant:  tn,
		buyer:   dbtest.User(t, gdb, types.UserRoleStudent, tn.ID),
	}
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func TestCheckout_AllFreeEnrollsImmediately(t *testing.T) {
	f := newFixture(t)
	c1 := dbtest.Course(t, f.db, f.tenant.ID, 0)
	c2 := dbtest.Course(t, f.db, f.tenant.ID, 0)
	dbtest.CartItem(t, f.db, f.buyer.ID, f.tenant.ID, c1.ID)
	dbtest.CartItem(t, f.db, f.buyer.ID, f.tenant.ID, c2.ID)

	res, err := f.svc.Checkout(context.Background(), f.tenant, f.buyer, &CheckoutRequest{CourseIDs: []string{c1.ID, c2.ID, c1.ID}})
	require.NoError(t, err)
	require.Equal(t, CheckoutStatusCompleted, res.Status)
	require.Empty(t, res.RedirectURL)

	require.EqualValues(t, 2, f.count(t, &models.Enrollment{}, "user_id = ?", f.buyer.ID))
	require.EqualValues(t, 0, f.count(t, &models.Enrollment{}, "payment_id IS NOT NULL"))
	require.EqualValues(t, 0, f.count(t, &models.Payment{}, "1 = 1"))
	require.EqualValues(t, 0, f.count(t, &models.CartItem{}, "user_id = ?", f.buyer.ID))
	require.Empty(t, f.gateway.payments)
}

func TestCheckout_PaidPathAmountAndFee(t *testing.T) {
	f := newFixture(t)
	c1 := dbtest.Course(t, f.db, f.tenant.ID, 500)
	c2 := dbtest.Course(t, f.db, f.tenant.ID, 555)
	dbtest.CartItem(t, f.db, f.buyer.ID, f.tenant.ID, c1.ID)

	res, err := f.svc.Checkout(context.Background(), f.tenant, f.buyer, &CheckoutRequest{CourseIDs: []string{c1.ID, c2.ID}})
	require.NoError(t, err)
	require.Equal(t, CheckoutStatusRedirect, res.Status)
	require.Equal(t, "https://checkout.example/cs_test_1", res.RedirectURL)

	var p models.Payment
	require.NoError(t, f.db.Where("id = ?", res.PaymentID).Take(&p).Error)
	require.Equal(t, types.PaymentStatusPending, p.Status)
	require.EqualValues(t, 1055, p.Amount)
	// 105.5 rounds half up
	require.EqualValues(t, 106, p.PlatformFee)
	require.Equal(t, money.PlatformFee(1055, f.tenant.CommissionRateBps), p.PlatformFee)
	require.NotNil(t, p.ExternalCheckoutSessionID)
	require.Equal(t, "cs_test_1", *p.ExternalCheckoutSessionID)
	require.Equal(t, []string{c1.ID, c2.ID}, p.Metadata.Data().CourseIDs)

	require.EqualValues(t, 2, f.count(t, &models.PaymentItem{}, "payment_id = ?", p.ID))
	// nothing is granted before settlement
	require.EqualValues(t, 0, f.count(t, &models.Enrollment{}, "1 = 1"))
	require.EqualValues(t, 1, f.count(t, &models.CartItem{}, "user_id = ?", f.buyer.ID))

	require.Len(t, f.gateway.payments, 1)
	sent := f.gateway.payments[0]
	require.Equal(t, "acct_acme", sent.ConnectAccountID)
	require.EqualValues(t, 106, sent.ApplicationFee)
	require.Equal(t, "course-checkout-"+p.ID, sent.IdempotencyKey)
	require.Equal(t, p.ID, sent.Metadata[types.MetadataPaymentID])
	require.Equal(t, f.tenant.ID, sent.Metadata[types.MetadataTenantID])
	require.Equal(t, f.buyer.ID, sent.Metadata[types.MetadataUserID])
	require.Equal(t, c1.ID+","+c2.ID, sent.Metadata[types.MetadataCourseIDs])
	require.Contains(t, sent.SuccessURL, "https://acme.academy.test/checkout/success?payment_id=")
}

func TestCheckout_MixedBatchGoesThroughPayment(t *testing.T) {
	f := newFixture(t)
	paid := dbtest.Course(t, f.db, f.tenant.ID, 500)
	// a free course is not held to the paid courses' currency
	free := dbtest.Course(t, f.db, f.tenant.ID, 0, func(c *models.Course) { c.Currency = "eur" })

	res, err := f.svc.Checkout(context.Background(), f.tenant, f.buyer, &CheckoutRequest{CourseIDs: []string{paid.ID, free.ID}})
	require.NoError(t, err)
	require.Equal(t, CheckoutStatusRedirect, res.Status)

	require.EqualValues(t, 1, f.count(t, &models.Payment{}, "1 = 1"))
	var p models.Payment
	require.NoError(t, f.db.Take(&p).Error)
	require.EqualValues(t, 500, p.Amount)
	require.EqualValues(t, 50, p.PlatformFee)

	var items []models.PaymentItem
	require.NoError(t, f.db.Where("payment_id = ?", p.ID).Order("price_at_purchase DESC").Find(&items).Error)
	require.Len(t, items, 2)
	require.EqualValues(t, 500, items[0].PriceAtPurchase)
	require.Equal(t, paid.ID, items[0].CourseID)
	require.Equal(t, "usd", items[0].CurrencyAtPurchase)
	require.EqualValues(t, 0, items[1].PriceAtPurchase)
	require.Equal(t, free.ID, items[1].CourseID)
	require.Equal(t, "eur", items[1].CurrencyAtPurchase)
	require.Equal(t, "usd", p.Currency)

	// the free course is not enrolled ahead of payment
	require.EqualValues(t, 0, f.count(t, &models.Enrollment{}, "1 = 1"))
	require.Len(t, f.gateway.payments[0].LineItems, 1)
}

func TestCheckout_PreconditionsWriteNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	published := dbtest.Course(t, f.db, f.tenant.ID, 500)
	draft := dbtest.Course(t, f.db, f.tenant.ID, 500, func(c *models.Course) { c.Status = types.CourseStatusDraft })
	eur := dbtest.Course(t, f.db, f.tenant.ID, 700, func(c *models.Course) { c.Currency = "eur" })
	other := dbtest.Tenant(t, f.db, "other")
	foreign := dbtest.Course(t, f.db, other.ID, 500)
	owned := dbtest.Course(t, f.db, f.tenant.ID, 300)
	require.NoError(t, f.db.Create(&models.Enrollment{
		ID: tool.GenerateUUIDV7(), UserID: f.buyer.ID, CourseID: owned.ID, TenantID: f.tenant.ID, PurchasePrice: 300, PurchaseCurrency: "usd",
	}).Error)

	noCharges := *f.tenant
	noCharges.ChargesEnabled = false

	cases := []struct {
		name   string
		tenant *models.Tenant
		ids    []string
		kind   error
	}{
		{name: "charges disabled", tenant: &noCharges, ids: []string{published.ID}, kind: apperr.ErrBadRequest},
		{name: "empty", tenant: f.tenant, ids: []string{"", ""}, kind: apperr.ErrBadRequest},
		{name: "unknown course", tenant: f.tenant, ids: []string{published.ID, "0190d3c4-0000-7000-8000-000000000000"}, kind: apperr.ErrNotFound},
		{name: "other tenant's course", tenant: f.tenant, ids: []string{foreign.ID}, kind: apperr.ErrNotFound},
		{name: "draft course", tenant: f.tenant, ids: []string{published.ID, draft.ID}, kind: apperr.ErrBadRequest},
		{name: "already enrolled", tenant: f.tenant, ids: []string{published.ID, owned.ID}, kind: apperr.ErrBadRequest},
		{name: "mixed currency", tenant: f.tenant, ids: []string{published.ID, eur.ID}, kind: apperr.ErrBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Checkout(ctx, tc.tenant, f.buyer, &CheckoutRequest{CourseIDs: tc.ids})
			require.ErrorIs(t, err, tc.kind)
		})
	}
	require.EqualValues(t, 0, f.count(t, &models.Payment{}, "1 = 1"))
	require.EqualValues(t, 0, f.count(t, &models.PaymentItem{}, "1 = 1"))
	require.EqualValues(t, 1, f.count(t, &models.Enrollment{}, "1 = 1"))
	require.Empty(t, f.gateway.payments)
}

func TestCheckout_ProviderFailureMarksPaymentFailed(t *testing.T) {
	f := newFixture(t)
	f.gateway.fail = true
	c := dbtest.Course(t, f.db, f.tenant.ID, 500)

	_, err := f.svc.Checkout(context.Background(), f.tenant, f.buyer, &CheckoutRequest{CourseIDs: []string{c.ID}})
	require.ErrorIs(t, err, apperr.ErrInternal)

	var p models.Payment
	require.NoError(t, f.db.Take(&p).Error)
	require.Equal(t, types.PaymentStatusFailed, p.Status)
	require.Nil(t, p.ExternalCheckoutSessionID)
	require.Contains(t, p.Metadata.Data().Error, "provider timeout")
}
