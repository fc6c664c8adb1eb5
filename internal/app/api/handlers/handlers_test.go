package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mw "github.com/fatflowers/courseshop/internal/app/api/middleware"
	"github.com/fatflowers/courseshop/internal/app/service/access"
	"github.com/fatflowers/courseshop/internal/app/service/checkout"
	"github.com/fatflowers/courseshop/internal/app/service/statistics"
	"github.com/fatflowers/courseshop/internal/app/service/tenantdir"
	"github.com/fatflowers/courseshop/internal/app/service/webhook"
	"github.com/fatflowers/courseshop/internal/models"
	"github.com/fatflowers/courseshop/pkg/apperr"
	"github.com/fatflowers/courseshop/pkg/response"
	"github.com/fatflowers/courseshop/pkg/types"
)

var nopLog = zap.NewNop().Sugar()

type fakeResolver struct{ tenant *models.Tenant }

func (f fakeResolver) Resolve(_ context.Context, _, slug string) (*models.Tenant, error) {
	if f.tenant != nil && slug == f.tenant.Slug {
		return f.tenant, nil
	}
	return nil, apperr.NotFound("tenant %s", slug)
}

type fakeAuth struct{ user *models.User }

func (f fakeAuth) Derive(_ context.Context, cred string, _ *models.Tenant) (*access.Principal, error) {
	if cred != "good" {
		return nil, apperr.Unauthorized("bad credential")
	}
	return &access.Principal{User: f.user, EffectiveTenantID: f.user.HomeTenantID()}, nil
}

type fakePurchaser struct {
	gotTenant *models.Tenant
	gotUser   *models.User
	gotReq    *checkout.CheckoutRequest
	err       error
}

func (f *fakePurchaser) Checkout(_ context.Context, tenant *models.Tenant, user *models.User, req *checkout.CheckoutRequest) (*checkout.CheckoutResult, error) {
	f.gotTenant, f.gotUser, f.gotReq = tenant, user, req
	if f.err != nil {
		return nil, f.err
	}
	return &checkout.CheckoutResult{Status: checkout.CheckoutStatusRedirect, RedirectURL: "https://pay.test/cs_1", PaymentID: "p1"}, nil
}

type fakeSales struct {
	got *statistics.SalesStatisticRequest
}

func (f *fakeSales) GetSalesStatistic(_ context.Context, req *statistics.SalesStatisticRequest) (*statistics.SalesStatisticResponse, error) {
	f.got = req
	return &statistics.SalesStatisticResponse{DataItems: map[statistics.StatisticType][]statistics.SalesStatisticResponseDataItem{}}, nil
}

func (f *fakeSales) ScanPayments(context.Context, *statistics.ScanPaymentsRequest) (*statistics.ScanPaymentsResponse, error) {
	return &statistics.ScanPaymentsResponse{}, nil
}

type fakeTenantAdmin struct {
	slugs, domains []string
}

func (f *fakeTenantAdmin) UpdateSettings(context.Context, string, *tenantdir.UpdateTenantSettingsRequest) (*models.Tenant, error) {
	return nil, nil
}

func (f *fakeTenantAdmin) Invalidate(_ context.Context, slug string) error {
	f.slugs = append(f.slugs, slug)
	return nil
}

func (f *fakeTenantAdmin) InvalidateByDomain(_ context.Context, domain string) error {
	f.domains = append(f.domains, domain)
	return nil
}

type fakeUsers struct{ ids []string }

func (f *fakeUsers) InvalidateUser(_ context.Context, id string) error {
	f.ids = append(f.ids, id)
	return nil
}

type fakeIngester struct {
	err     error
	payload []byte
	sig     string
	channel webhook.Channel
}

func (f *fakeIngester) Ingest(_ context.Context, channel webhook.Channel, payload []byte, sig string) (*webhook.Result, error) {
	f.channel, f.payload, f.sig = channel, payload, sig
	if f.err != nil {
		return nil, f.err
	}
	return &webhook.Result{Outcome: webhook.OutcomeFailed}, nil
}

func tenantRouter(tenant *models.Tenant, user *models.User) (*gin.Engine, *gin.RouterGroup) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1",
		mw.TenantMiddleware(fakeResolver{tenant: tenant}, nopLog),
		mw.RequireTenant(),
		mw.AuthMiddleware(fakeAuth{user: user}, nopLog),
	)
	return r, g
}

func doJSON(r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) response.APIResponse[T] {
	t.Helper()
	var out response.APIResponse[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestApiCheckout(t *testing.T) {
	tenantID := "t1"
	tn := &models.Tenant{ID: tenantID, Slug: "acme"}
	buyer := &models.User{ID: "u1", Role: types.UserRoleStudent, TenantID: &tenantID}
	svc := &fakePurchaser{}
	r, g := tenantRouter(tn, buyer)
	RegisterCheckoutRoutes(g, svc, nopLog)
	hdr := map[string]string{mw.TenantSlugHeader: "acme", "Authorization": "Bearer good"}

	w := doJSON(r, http.MethodPost, "/api/v1/checkout", map[string]any{"course_ids": []string{"c1", "c2"}}, hdr)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[checkout.CheckoutResult](t, w)
	require.Equal(t, response.APIResponseCodeOK, res.Code)
	require.Equal(t, checkout.CheckoutStatusRedirect, res.Data.Status)
	require.Equal(t, tn, svc.gotTenant)
	require.Equal(t, buyer, svc.gotUser)
	require.Equal(t, []string{"c1", "c2"}, svc.gotReq.CourseIDs)

	w = doJSON(r, http.MethodPost, "/api/v1/checkout", map[string]any{}, hdr)
	require.Equal(t, response.APIResponseCodeBadRequest, decode[any](t, w).Code)

	svc.err = apperr.Internal("create session", context.DeadlineExceeded)
	w = doJSON(r, http.MethodPost, "/api/v1/checkout", map[string]any{"course_ids": []string{"c1"}}, hdr)
	out := decode[string](t, w)
	require.Equal(t, response.APIResponseCodeError, out.Code)
	require.NotContains(t, out.Data, "deadline")

	w = doJSON(r, http.MethodPost, "/api/v1/checkout", map[string]any{"course_ids": []string{"c1"}}, map[string]string{"Authorization": "Bearer good"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/checkout", map[string]any{"course_ids": []string{"c1"}}, map[string]string{mw.TenantSlugHeader: "acme"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestApiTenantSalesStatistic_ScopesToTenant(t *testing.T) {
	tenantID := "t1"
	tn := &models.Tenant{ID: tenantID, Slug: "acme"}
	owner := &models.User{ID: "u1", Role: types.UserRoleOwner, TenantID: &tenantID}
	sales := &fakeSales{}
	r, g := tenantRouter(tn, owner)
	RegisterTenantRoutes(g.Group("/tenant", mw.RequireRole(types.UserRoleOwner, types.UserRoleSuperadmin)), nil, nil, sales, nopLog)

	w := doJSON(r, http.MethodPost, "/api/v1/tenant/sales_statistic", map[string]any{
		"data_items": []map[string]string{{"id": "total_gmv"}},
	}, map[string]string{mw.TenantSlugHeader: "acme", "Authorization": "Bearer good"})
	require.Equal(t, response.APIResponseCodeOK, decode[any](t, w).Code)
	require.Len(t, sales.got.Filters, 1)
	require.Equal(t, "tenant_id", sales.got.Filters[0].Field)
	require.Equal(t, []any{tenantID}, sales.got.Filters[0].Values)
}

func TestApiInvalidateCache(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	tenants, users := &fakeTenantAdmin{}, &fakeUsers{}
	RegisterAdminRoutes(r.Group("/admin"), tenants, users, &fakeSales{}, nopLog)

	w := doJSON(r, http.MethodPost, "/admin/cache/invalidate", map[string]string{}, nil)
	require.Equal(t, response.APIResponseCodeBadRequest, decode[any](t, w).Code)

	w = doJSON(r, http.MethodPost, "/admin/cache/invalidate", map[string]string{"slug": "acme", "domain": "learn.acme.io", "user_id": "u1"}, nil)
	require.Equal(t, response.APIResponseCodeOK, decode[any](t, w).Code)
	require.Equal(t, []string{"acme"}, tenants.slugs)
	require.Equal(t, []string{"learn.acme.io"}, tenants.domains)
	require.Equal(t, []string{"u1"}, users.ids)
}

func TestApiWebhook(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ing := &fakeIngester{}
	r := gin.New()
	RegisterWebhookRoutes(r.Group("/webhooks"), ing, nopLog)

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Stripe-Signature", "t=1,v1=abc")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post("/webhooks/connect", `{"id":"evt_1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"received":true}`, w.Body.String())
	require.Equal(t, webhook.ChannelConnect, ing.channel)
	require.Equal(t, `{"id":"evt_1"}`, string(ing.payload))
	require.Equal(t, "t=1,v1=abc", ing.sig)

	ing.err = apperr.BadRequest("invalid webhook signature")
	require.Equal(t, http.StatusBadRequest, post("/webhooks/billing", `{}`).Code)
	require.Equal(t, webhook.ChannelBilling, ing.channel)

	ing.err = webhook.ErrChannelNotConfigured
	require.Equal(t, http.StatusServiceUnavailable, post("/webhooks/billing", `{}`).Code)

	ing.err = nil
	big := `{"pad":"` + strings.Repeat("x", maxWebhookBody) + `"}`
	require.Equal(t, http.StatusRequestEntityTooLarge, post("/webhooks/billing", big).Code)
}
