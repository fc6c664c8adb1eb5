package access

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/courseshop/internal/models"
	"github.com/fatflowers/courseshop/internal/platform/cache"
	"github.com/fatflowers/courseshop/internal/platform/db/dbtest"
	"github.com/fatflowers/courseshop/pkg/apperr"
	cfgpkg "github.com/fatflowers/courseshop/pkg/config"
	"github.com/fatflowers/courseshop/pkg/types"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	gdb := dbtest.New(t)
	store, err := cache.NewMemoryStore(64)
	require.NoError(t, err)
	cfg := &cfgpkg.Config{
		Auth:  cfgpkg.AuthConfig{JWTSecret: "test-secret"},
		Cache: cfgpkg.CacheConfig{UserTTL: time.Minute},
	}
	return NewService(gdb, store, cfg, zap.NewNop().Sugar()), gdb
}

func token(t *testing.T, s *Service, userID string) string {
	t.Helper()
	tok, err := s.IssueToken(userID, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestDerive_BypassMatrix(t *testing.T) {
	s, gdb := newTestService(t)
	ctx := context.Background()

	acme := dbtest.Tenant(t, gdb, "acme")
	other := dbtest.Tenant(t, gdb, "other")

	superadmin := dbtest.User(t, gdb, types.UserRoleSuperadmin, "")
	newOwner := dbtest.User(t, gdb, types.UserRoleOwner, "")
	owner := dbtest.User(t, gdb, types.UserRoleOwner, acme.ID)
	student := dbtest.User(t, gdb, types.UserRoleStudent, acme.ID)

	cases := []struct {
		name          string
		user          *models.User
		tenant        *models.Tenant
		wantErr       bool
		wantEffective string
	}{
		{name: "superadmin inside tenant acts for it", user: superadmin, tenant: other, wantEffective: other.ID},
		{name: "superadmin without tenant", user: superadmin, tenant: nil, wantEffective: ""},
		{name: "owner without storefront", user: newOwner, tenant: other, wantEffective: ""},
		{name: "owner at home", user: owner, tenant: acme, wantEffective: acme.ID},
		{name: "owner elsewhere", user: owner, tenant: other, wantErr: true},
		{name: "student at home", user: student, tenant: acme, wantEffective: acme.ID},
		{name: "student without tenant context", user: student, tenant: nil, wantEffective: acme.ID},
		{name: "student elsewhere", user: student, tenant: other, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := s.Derive(ctx, token(t, s, tc.user.ID), tc.tenant)
			if tc.wantErr {
				require.ErrorIs(t, err, apperr.ErrUnauthorized)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.user.ID, p.User.ID)
			require.Equal(t, tc.wantEffective, p.EffectiveTenantID)
		})
	}
}

func TestDerive_RejectsBadCredentials(t *testing.T) {
	s, gdb := newTestService(t)
	ctx := context.Background()
	u := dbtest.User(t, gdb, types.UserRoleStudent, "")

	_, err := s.Derive(ctx, "", nil)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = s.Derive(ctx, "not-a-jwt", nil)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{Subject: u.ID}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = s.Derive(ctx, forged, nil)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	expired, err := s.IssueToken(u.ID, -time.Minute)
	require.NoError(t, err)
	_, err = s.Derive(ctx, expired, nil)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = s.Derive(ctx, token(t, s, "0190d3c4-0000-7000-8000-000000000000"), nil)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestInvalidateUser_RoleChangeVisibleImmediately(t *testing.T) {
	s, gdb := newTestService(t)
	ctx := context.Background()
	acme := dbtest.Tenant(t, gdb, "acme")
	other := dbtest.Tenant(t, gdb, "other")
	u := dbtest.User(t, gdb, types.UserRoleStudent, acme.ID)
	tok := token(t, s, u.ID)

	_, err := s.Derive(ctx, tok, other)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	require.NoError(t, gdb.Model(&models.User{}).Where("id = ?", u.ID).Update("role", types.UserRoleSuperadmin).Error)
	require.NoError(t, s.InvalidateUser(ctx, u.ID))

	p, err := s.Derive(ctx, tok, other)
	require.NoError(t, err)
	require.Equal(t, other.ID, p.EffectiveTenantID)
}

func TestBearerToken(t *testing.T) {
	require.Equal(t, "abc", BearerToken("Bearer abc"))
	require.Equal(t, "abc", BearerToken("bearer  abc "))
	require.Equal(t, "", BearerToken("Basic abc"))
	require.Equal(t, "", BearerToken(""))
}
