package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/fatflowers/courseshop/internal/models"
	stripeclient "github.com/fatflowers/courseshop/internal/platform/stripe"
)

type fakeGateway struct {
	mu           sync.Mutex
	fail         bool
	payments     []*stripeclient.PaymentSessionParams
	subs         []*stripeclient.SubscriptionSessionParams
	accounts     int
	linkAccounts []string
}

func (f *fakeGateway) CreatePaymentSession(_ context.Context, p *stripeclient.PaymentSessionParams) (*stripeclient.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("provider timeout")
	}
	f.payments = append(f.payments, p)
	return &stripeclient.Session{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1"}, nil
}

func (f *fakeGateway) CreateSubscriptionSession(_ context.Context, p *stripeclient.SubscriptionSessionParams) (*stripeclient.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("provider timeout")
	}
	f.subs = append(f.subs, p)
	return &stripeclient.Session{ID: "cs_sub_1", URL: "https://checkout.example/cs_sub_1"}, nil
}

func (f *fakeGateway) CreateConnectAccount(_ context.Context, tenantID, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("provider timeout")
	}
	f.accounts++
	return "acct_new_" + tenantID[:8], nil
}

func (f *fakeGateway) CreateOnboardingLink(_ context.Context, accountID, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linkAccounts = append(f.linkAccounts, accountID)
	return "https://connect.example/onboard/" + accountID, nil
}

type fakeInvalidator struct {
	slugs []string
}

func (f *fakeInvalidator) InvalidateTenant(_ context.Context, t *models.Tenant) error {
	f.slugs = append(f.slugs, t.Slug)
	return nil
}
