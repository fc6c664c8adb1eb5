// Package stripe adapts the stripe-go SDK to the narrow surface the checkout
// and webhook services need.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	stripelib "github.com/stripe/stripe-go/v82"
	stripeaccount "github.com/stripe/stripe-go/v82/account"
	stripeaccountlink "github.com/stripe/stripe-go/v82/accountlink"
	stripesession "github.com/stripe/stripe-go/v82/checkout/session"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/courseshop/pkg/config"
	"github.com/fatflowers/courseshop/pkg/metrics"
	"github.com/fatflowers/courseshop/pkg/tool"
)

var ErrNotConfigured = errors.New("stripe secret key not configured")

// LineItem is one ad-hoc priced row on a hosted payment page.
type LineItem struct {
	Name   string
	Amount int64
}

type PaymentSessionParams struct {
	ConnectAccountID string
	Currency         string
	LineItems        []LineItem
	ApplicationFee   int64
	Metadata         map[string]string
	SuccessURL       string
	CancelURL        string
	IdempotencyKey   string
}

type SubscriptionSessionParams struct {
	PriceID    string
	CustomerID string
	TrialDays  int64
	Metadata   map[string]string
	SuccessURL string
	CancelURL  string
}

type Session struct {
	ID  string
	URL string
}

// Client talks to the provider API. The SDK calls are held as fields so tests
// can replace them.
type Client struct {
	log       *zap.SugaredLogger
	secretKey string

	createCheckoutSession func(params *stripelib.CheckoutSessionParams) (*stripelib.CheckoutSession, error)
	createAccount         func(params *stripelib.AccountParams) (*stripelib.Account, error)
	createAccountLink     func(params *stripelib.AccountLinkParams) (*stripelib.AccountLink, error)
}

func NewClient(cfg *cfgpkg.Config, log *zap.SugaredLogger) *Client {
	key := strings.TrimSpace(cfg.Stripe.SecretKey)
	stripelib.Key = key
	if cfg.Stripe.Timeout > 0 {
		stripelib.SetBackend(stripelib.APIBackend, stripelib.GetBackendWithConfig(stripelib.APIBackend, &stripelib.BackendConfig{
			HTTPClient: &http.Client{Timeout: cfg.Stripe.Timeout},
		}))
	}
	return &Client{
		log:                   log,
		secretKey:             key,
		createCheckoutSession: stripesession.New,
		createAccount:         stripeaccount.New,
		createAccountLink:     stripeaccountlink.New,
	}
}

// CreatePaymentSession opens a one-off hosted payment page on the tenant's
// connected account, collecting ApplicationFee for the platform.
func (c *Client) CreatePaymentSession(ctx context.Context, p *PaymentSessionParams) (*Session, error) {
	if c.secretKey == "" {
		return nil, ErrNotConfigured
	}
	if p.ConnectAccountID == "" {
		return nil, fmt.Errorf("connect account id is required")
	}

	params := &stripelib.CheckoutSessionParams{
		Mode:       stripelib.String(string(stripelib.CheckoutSessionModePayment)),
		SuccessURL: stripelib.String(p.SuccessURL),
		CancelURL:  stripelib.String(p.CancelURL),
		PaymentIntentData: &stripelib.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripelib.Int64(p.ApplicationFee),
			Metadata:             p.Metadata,
		},
		Metadata: p.Metadata,
	}
	for _, li := range p.LineItems {
		params.LineItems = append(params.LineItems, &stripelib.CheckoutSessionLineItemParams{
			Quantity: stripelib.Int64(1),
			PriceData: &stripelib.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripelib.String(strings.ToLower(p.Currency)),
				UnitAmount: stripelib.Int64(li.Amount),
				ProductData: &stripelib.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripelib.String(li.Name),
				},
			},
		})
	}
	params.Context = ctx
	params.SetStripeAccount(p.ConnectAccountID)
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	start := time.Now()
	s, err := c.createCheckoutSession(params)
	observe("payment_session", start, err)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	if s == nil || strings.TrimSpace(s.URL) == "" {
		return nil, fmt.Errorf("create checkout session: empty session url")
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

// CreateSubscriptionSession opens a hosted page subscribing a tenant to a platform plan.
func (c *Client) CreateSubscriptionSession(ctx context.Context, p *SubscriptionSessionParams) (*Session, error) {
	if c.secretKey == "" {
		return nil, ErrNotConfigured
	}
	params := &stripelib.CheckoutSessionParams{
		Mode:       stripelib.String(string(stripelib.CheckoutSessionModeSubscription)),
		SuccessURL: stripelib.String(p.SuccessURL),
		CancelURL:  stripelib.String(p.CancelURL),
		LineItems: []*stripelib.CheckoutSessionLineItemParams{
			{
				Price:    stripelib.String(p.PriceID),
				Quantity: stripelib.Int64(1),
			},
		},
		SubscriptionData: &stripelib.CheckoutSessionSubscriptionDataParams{
			Metadata: p.Metadata,
		},
		Metadata: p.Metadata,
	}
	if p.TrialDays > 0 {
		params.SubscriptionData.TrialPeriodDays = stripelib.Int64(p.TrialDays)
	}
	if p.CustomerID != "" {
		params.Customer = stripelib.String(p.CustomerID)
	}
	params.Context = ctx

	start := time.Now()
	s, err := c.createCheckoutSession(params)
	observe("subscription_session", start, err)
	if err != nil {
		return nil, fmt.Errorf("create subscription session: %w", err)
	}
	if s == nil || strings.TrimSpace(s.URL) == "" {
		return nil, fmt.Errorf("create subscription session: empty session url")
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

// CreateConnectAccount creates an Express account for a tenant and returns its id.
func (c *Client) CreateConnectAccount(ctx context.Context, tenantID, email string) (string, error) {
	if c.secretKey == "" {
		return "", ErrNotConfigured
	}
	params := &stripelib.AccountParams{
		Type: stripelib.String(string(stripelib.AccountTypeExpress)),
		Capabilities: &stripelib.AccountCapabilitiesParams{
			CardPayments: &stripelib.AccountCapabilitiesCardPaymentsParams{Requested: stripelib.Bool(true)},
			Transfers:    &stripelib.AccountCapabilitiesTransfersParams{Requested: stripelib.Bool(true)},
		},
	}
	if email != "" {
		params.Email = stripelib.String(email)
	}
	params.AddMetadata("tenant_id", tenantID)
	params.Context = ctx
	params.SetIdempotencyKey(tool.IdempotencyKey("connect-account", tenantID))

	start := time.Now()
	acct, err := c.createAccount(params)
	observe("connect_account", start, err)
	if err != nil {
		return "", fmt.Errorf("create connect account: %w", err)
	}
	return acct.ID, nil
}

// CreateOnboardingLink returns a one-time URL for the tenant to finish account onboarding.
func (c *Client) CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	if c.secretKey == "" {
		return "", ErrNotConfigured
	}
	params := &stripelib.AccountLinkParams{
		Account:    stripelib.String(accountID),
		RefreshURL: stripelib.String(refreshURL),
		ReturnURL:  stripelib.String(returnURL),
		Type:       stripelib.String("account_onboarding"),
	}
	params.Context = ctx

	start := time.Now()
	link, err := c.createAccountLink(params)
	observe("onboarding_link", start, err)
	if err != nil {
		return "", fmt.Errorf("create account link: %w", err)
	}
	return link.URL, nil
}

func observe(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ProviderCallDuration.WithLabelValues(operation, outcome).Observe(metrics.MillisecondsSince(start))
}

var Module = fx.Options(
	fx.Provide(NewClient),
)
