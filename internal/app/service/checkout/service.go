// Package checkout opens purchases: course batches bought by students, plan
// subscriptions bought by tenants and connected-account onboarding.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/courseshop/internal/app/service/tenantdir"
	"github.com/fatflowers/courseshop/internal/models"
	stripeclient "github.com/fatflowers/courseshop/internal/platform/stripe"
	"github.com/fatflowers/courseshop/pkg/apperr"
	cfgpkg "github.com/fatflowers/courseshop/pkg/config"
)

// Gateway is the hosted-payment provider.
type Gateway interface {
	CreatePaymentSession(ctx context.Context, p *stripeclient.PaymentSessionParams) (*stripeclient.Session, error)
	CreateSubscriptionSession(ctx context.Context, p *stripeclient.SubscriptionSessionParams) (*stripeclient.Session, error)
	CreateConnectAccount(ctx context.Context, tenantID, email string) (string, error)
	CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
}

type Service struct {
	db      *gorm.DB
	log     *zap.SugaredLogger
	cfg     *cfgpkg.Config
	gateway Gateway
	tenants tenantdir.Invalidator
}

func NewService(db *gorm.DB, cfg *cfgpkg.Config, gateway Gateway, tenants tenantdir.Invalidator, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log, cfg: cfg, gateway: gateway, tenants: tenants}
}

type CheckoutStatus string

const (
	CheckoutStatusCompleted CheckoutStatus = "completed"
	CheckoutStatusRedirect  CheckoutStatus = "redirect"
)

type CheckoutResult struct {
	Status      CheckoutStatus `json:"status"`
	RedirectURL string         `json:"redirect_url,omitempty"`
	PaymentID   string         `json:"payment_id,omitempty"`
	SessionID   string         `json:"session_id,omitempty"`
}

// freshTenant re-reads the tenant row; request tenants come from the cache.
func (s *Service) freshTenant(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error) {
	if tenant == nil {
		return nil, apperr.NotFound("tenant not found")
	}
	var t models.Tenant
	err := s.db.WithContext(ctx).Where("id = ?", tenant.ID).Take(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("tenant %s not found", tenant.ID)
	}
	if err != nil {
		return nil, apperr.Internal("load tenant", err)
	}
	return &t, nil
}

// storefrontURL joins path onto the public origin of the tenant's storefront.
func (s *Service) storefrontURL(t *models.Tenant, path string) string {
	scheme := s.cfg.Tenant.Scheme
	if scheme == "" {
		scheme = "https"
	}
	host := t.Domain()
	if host == "" {
		host = t.Slug + "." + s.cfg.Tenant.BaseDomain
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, path)
}

func withQuery(u, key, value string) string {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + key + "=" + value
}
