// Package access authenticates callers and decides whether a user may act
// inside the tenant a request resolved to.
package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/courseshop/internal/models"
	"github.com/fatflowers/courseshop/internal/platform/cache"
	"github.com/fatflowers/courseshop/pkg/apperr"
	cfgpkg "github.com/fatflowers/courseshop/pkg/config"
	"github.com/fatflowers/courseshop/pkg/logctx"
	"github.com/fatflowers/courseshop/pkg/types"
)

const userKeyPrefix = "user:"

func UserKey(id string) string { return userKeyPrefix + id }

// Principal is the authenticated caller and the tenant it acts for.
type Principal struct {
	User              *models.User
	EffectiveTenantID string
}

func (p *Principal) HasRole(roles ...types.UserRole) bool {
	if p == nil || p.User == nil {
		return false
	}
	for _, r := range roles {
		if p.User.Role == r {
			return true
		}
	}
	return false
}

// ActsFor reports whether p may act on behalf of tenantID. Derive sets a
// superadmin's effective tenant to the request tenant, so the same check
// covers every role; an owner without a storefront acts for none.
func (p *Principal) ActsFor(tenantID string) bool {
	if p == nil || p.User == nil || tenantID == "" {
		return false
	}
	return p.EffectiveTenantID == tenantID
}

type Service struct {
	db     *gorm.DB
	log    *zap.SugaredLogger
	secret []byte
	users  *cache.ReadThrough[models.User]
}

func NewService(db *gorm.DB, store cache.Store, cfg *cfgpkg.Config, log *zap.SugaredLogger) *Service {
	return &Service{
		db:     db,
		log:    log,
		secret: []byte(cfg.Auth.JWTSecret),
		users:  cache.NewReadThrough[models.User]("user", store, cfg.Cache.UserTTL, log),
	}
}

// Derive authenticates credential and checks the user against the request tenant.
// tenant is nil when the request carries no tenant context.
func (s *Service) Derive(ctx context.Context, credential string, tenant *models.Tenant) (*Principal, error) {
	userID, err := s.parseToken(credential)
	if err != nil {
		return nil, err
	}
	user, err := s.GetUser(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Unauthorized("unknown user")
	}
	if err != nil {
		return nil, err
	}

	p := &Principal{User: user, EffectiveTenantID: user.HomeTenantID()}
	switch {
	case user.Role == types.UserRoleSuperadmin:
		if tenant != nil {
			p.EffectiveTenantID = tenant.ID
		}
	case user.Role == types.UserRoleOwner && user.TenantID == nil:
		// owner still setting up a storefront
	case tenant != nil && tenant.ID != user.HomeTenantID():
		logctx.FromCtx(ctx, s.log).Warnw("cross_tenant_access_denied", "user_id", user.ID, "tenant_id", tenant.ID)
		return nil, apperr.Unauthorized("user does not belong to this tenant")
	}
	return p, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.users.Get(ctx, UserKey(id), func(ctx context.Context) (*models.User, error) {
		var u models.User
		err := s.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user %s not found", id)
		}
		if err != nil {
			return nil, apperr.Internal("load user", err)
		}
		return &u, nil
	})
}

// InvalidateUser must follow every write to a user row.
func (s *Service) InvalidateUser(ctx context.Context, id string) error {
	return s.users.Invalidate(ctx, UserKey(id))
}

// IssueToken signs a credential for userID. Used by tooling and tests.
func (s *Service) IssueToken(userID string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("jwt secret not configured")
	}
	claims := jwt.StandardClaims{
		Subject:   userID,
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) parseToken(credential string) (string, error) {
	if len(s.secret) == 0 {
		return "", apperr.Unauthorized("authentication not configured")
	}
	raw := strings.TrimSpace(credential)
	if raw == "" {
		return "", apperr.Unauthorized("missing credential")
	}
	var claims jwt.StandardClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", apperr.Unauthorized("invalid credential")
	}
	if claims.Subject == "" {
		return "", apperr.Unauthorized("credential has no subject")
	}
	return claims.Subject, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
