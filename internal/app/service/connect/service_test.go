package connect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/courseshop/internal/app/service/tenantdir"
	"github.com/fatflowers/courseshop/internal/models"
	"github.com/fatflowers/courseshop/internal/platform/cache"
	"github.com/fatflowers/courseshop/internal/platform/db/dbtest"
	stripeclient "github.com/fatflowers/courseshop/internal/platform/stripe"
	"github.com/fatflowers/courseshop/pkg/apperr"
	cfgpkg "github.com/fatflowers/courseshop/pkg/config"
	"github.com/fatflowers/courseshop/pkg/types"
)

func TestDeriveStatus(t *testing.T) {
	require.Equal(t, types.ConnectStatusActive, DeriveStatus(true, true, ""))
	require.Equal(t, types.ConnectStatusActive, DeriveStatus(true, true, "requirements.past_due"))
	require.Equal(t, types.ConnectStatusRestricted, DeriveStatus(true, false, "requirements.past_due"))
	require.Equal(t, types.ConnectStatusRestricted, DeriveStatus(false, false, "rejected.fraud"))
	require.Equal(t, types.ConnectStatusPending, DeriveStatus(false, false, ""))
	require.Equal(t, types.ConnectStatusPending, DeriveStatus(true, false, ""))
}

func TestReconcile(t *testing.T) {
	gdb := dbtest.New(t)
	store, err := cache.NewMemoryStore(16)
	require.NoError(t, err)
	cfg := &cfgpkg.Config{Tenant: cfgpkg.TenantConfig{BaseDomain: "academy.test"}, Cache: cfgpkg.CacheConfig{TenantTTL: time.Hour}}
	dir := tenantdir.NewService(gdb, store, cfg, zap.NewNop().Sugar())
	svc := NewService(gdb, dir, zap.NewNop().Sugar())
	ctx := context.Background()

	domain := "learn.acme.io"
	tn := dbtest.Tenant(t, gdb, "acme", func(tn *models.Tenant) {
		tn.CustomDomain = &domain
		tn.ChargesEnabled = false
		tn.PayoutsEnabled = false
		tn.ConnectStatus = types.ConnectStatusPending
	})
	cached, err := dir.Resolve(ctx, "", "acme")
	require.NoError(t, err)
	require.False(t, cached.ChargesEnabled)
	cached, err = dir.Resolve(ctx, "learn.acme.io", "")
	require.NoError(t, err)
	require.False(t, cached.ChargesEnabled)

	ev := stripeclient.AccountUpdated{
		Header:         stripeclient.Header{ID: "evt_1", Type: "account.updated"},
		AccountID:      "acct_acme",
		ChargesEnabled: true,
		PayoutsEnabled: true,
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, svc.Reconcile(ctx, ev))
		got, err := dir.Resolve(ctx, "", "acme")
		require.NoError(t, err)
		require.True(t, got.ChargesEnabled)
		require.True(t, got.PayoutsEnabled)
		require.Equal(t, types.ConnectStatusActive, got.ConnectStatus)

		byDomain, err := dir.Resolve(ctx, "learn.acme.io", "")
		require.NoError(t, err)
		require.True(t, byDomain.ChargesEnabled)
		require.Equal(t, types.ConnectStatusActive, byDomain.ConnectStatus)
	}

	ev.ID = "evt_2"
	ev.PayoutsEnabled = false
	ev.DisabledReason = "requirements.past_due"
	require.NoError(t, svc.Reconcile(ctx, ev))
	var row models.Tenant
	require.NoError(t, gdb.Where("id = ?", tn.ID).Take(&row).Error)
	require.Equal(t, types.ConnectStatusRestricted, row.ConnectStatus)
	require.True(t, row.ChargesEnabled)
	require.False(t, row.PayoutsEnabled)

	ev.AccountID = "acct_unknown"
	require.ErrorIs(t, svc.Reconcile(ctx, ev), apperr.ErrNotFound)
	ev.AccountID = ""
	require.ErrorIs(t, svc.Reconcile(ctx, ev), apperr.ErrBadRequest)
}
