// Package tenantdir resolves the storefront a request belongs to and keeps
// the tenant cache coherent with writes.
package tenantdir

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/courseshop/internal/models"
	"github.com/fatflowers/courseshop/internal/platform/cache"
	"github.com/fatflowers/courseshop/pkg/apperr"
	cfgpkg "github.com/fatflowers/courseshop/pkg/config"
	"github.com/fatflowers/courseshop/pkg/logctx"
)

const (
	slugKeyPrefix   = "tenant:slug:"
	domainKeyPrefix = "tenant:domain:"
)

func SlugKey(slug string) string { return slugKeyPrefix + strings.ToLower(slug) }
func DomainKey(domain string) string { return domainKeyPrefix + strings.ToLower(domain) }

type Service struct {
	db         *gorm.DB
	log        *zap.SugaredLogger
	baseDomain string
	tenants    *cache.ReadThrough[models.Tenant]
}

func NewService(db *gorm.DB, store cache.Store, cfg *cfgpkg.Config, log *zap.SugaredLogger) *Service {
	return &Service{
		db:         db,
		log:        log,
		baseDomain: normalizeHost(cfg.Tenant.BaseDomain),
		tenants:    cache.NewReadThrough[models.Tenant]("tenant", store, cfg.Cache.TenantTTL, log),
	}
}

// Resolve finds the active tenant for a request. An explicit slug wins over
// the host. Loopback hosts, the bare base domain and www never resolve.
func (s *Service) Resolve(ctx context.Context, host, slugHeader string) (*models.Tenant, error) {
	if slug := strings.ToLower(strings.TrimSpace(slugHeader)); slug != "" {
		return s.BySlug(ctx, slug)
	}

	h := normalizeHost(host)
	if h == "" || isLoopback(h) {
		return nil, apperr.NotFound("no tenant for host %q", host)
	}

	if s.baseDomain != "" {
		if h == s.baseDomain {
			return nil, apperr.NotFound("no tenant for host %q", host)
		}
		if sub, ok := strings.CutSuffix(h, "."+s.baseDomain); ok {
			slug, _, _ := strings.Cut(sub, ".")
			if slug == "www" {
				return nil, apperr.NotFound("no tenant for host %q", host)
			}
			return s.BySlug(ctx, slug)
		}
	}
	return s.ByDomain(ctx, h)
}

func (s *Service) BySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	slug = strings.ToLower(slug)
	t, err := s.tenants.Get(ctx, SlugKey(slug), func(ctx context.Context) (*models.Tenant, error) {
		return s.load(ctx, "slug = ?", slug)
	})
	if err != nil {
		return nil, err
	}
	if !t.Active() {
		return nil, apperr.NotFound("tenant %s is not active", slug)
	}
	return t, nil
}

func (s *Service) ByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	domain = normalizeHost(domain)
	t, err := s.tenants.Get(ctx, DomainKey(domain), func(ctx context.Context) (*models.Tenant, error) {
		return s.load(ctx, "custom_domain = ?", domain)
	})
	if err != nil {
		return nil, err
	}
	if !t.Active() {
		return nil, apperr.NotFound("tenant for domain %s is not active", domain)
	}
	return t, nil
}

// GetByID reads the tenant row directly. Writers use it instead of the cache.
func (s *Service) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	return s.load(ctx, "id = ?", id)
}

func (s *Service) load(ctx context.Context, query string, arg any) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.WithContext(ctx).Where(query, arg).Take(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("tenant not found")
	}
	if err != nil {
		return nil, apperr.Internal("load tenant", err)
	}
	return &t, nil
}

func (s *Service) Invalidate(ctx context.Context, slug string) error {
	if slug == "" {
		return nil
	}
	return s.tenants.Invalidate(ctx, SlugKey(slug))
}

func (s *Service) InvalidateByDomain(ctx context.Context, domain string) error {
	domain = normalizeHost(domain)
	if domain == "" {
		return nil
	}
	return s.tenants.Invalidate(ctx, DomainKey(domain))
}

// InvalidateTenant drops every key the tenant can be resolved by. Callers run
// it after their write commits. A failed delete is retried in the background;
// the write itself has already succeeded, so callers log and carry on.
func (s *Service) InvalidateTenant(ctx context.Context, t *models.Tenant) error {
	if t == nil {
		return nil
	}
	keys := []string{SlugKey(t.Slug)}
	if d := normalizeHost(t.Domain()); d != "" {
		keys = append(keys, DomainKey(d))
	}
	if err := s.tenants.Invalidate(ctx, keys...); err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("tenant_cache_invalidate_failed", "tenant_id", t.ID, "err", err)
		return fmt.Errorf("invalidate tenant %s: %w", t.ID, err)
	}
	return nil
}

func normalizeHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" {
		return ""
	}
	if hp, _, err := net.SplitHostPort(h); err == nil {
		h = hp
	}
	h = strings.TrimPrefix(strings.TrimSuffix(h, "]"), "[")
	return strings.TrimSuffix(h, ".")
}

func isLoopback(h string) bool {
	switch h {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return strings.HasSuffix(h, ".localhost")
}
