package stripe

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	stripelib "github.com/stripe/stripe-go/v82"

	"github.com/fatflowers/courseshop/pkg/types"
)

// Event is one verified provider event. The set of implementations is closed:
// CheckoutCompleted, SubscriptionChanged, SubscriptionDeleted, AccountUpdated
// and Unhandled.
type Event interface {
	EventID() string
	EventType() string
	sealed()
}

type Header struct {
	ID   string
	Type string
}

func (h Header) EventID() string   { return h.ID }
func (h Header) EventType() string { return h.Type }
func (Header) sealed() {}

// CheckoutCompleted reports a paid one-off course session.
type CheckoutCompleted struct {
	Header
	SessionID       string
	PaymentIntentID string
	Metadata        map[string]string
}

// SubscriptionChanged reports a created or updated platform plan subscription.
type SubscriptionChanged struct {
	Header
	Action         types.SubscriptionEventType
	SubscriptionID string
	CustomerID     string
	Status         types.ProviderSubscriptionStatus
	PriceID        string
	TrialEnd       *time.Time
	Metadata       map[string]string
	Payload        []byte
}

type SubscriptionDeleted struct {
	Header
	SubscriptionID string
	CustomerID     string
	Metadata       map[string]string
	Payload        []byte
}

// AccountUpdated carries the capability snapshot of a connected account.
type AccountUpdated struct {
	Header
	AccountID      string
	ChargesEnabled bool
	PayoutsEnabled bool
	DisabledReason string
}

// Unhandled is acknowledged and dropped.
type Unhandled struct {
	Header
	Reason string
}

type checkoutSessionObject struct {
	ID            string            `json:"id"`
	Mode          string            `json:"mode"`
	PaymentStatus string            `json:"payment_status"`
	PaymentIntent string            `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

type subscriptionObject struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Status   string `json:"status"`
	TrialEnd *int64 `json:"trial_end"`
	Items    struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

type accountObject struct {
	ID             string `json:"id"`
	ChargesEnabled bool   `json:"charges_enabled"`
	PayoutsEnabled bool   `json:"payouts_enabled"`
	Requirements   struct {
		DisabledReason *string `json:"disabled_reason"`
	} `json:"requirements"`
}

// Decode maps a verified provider event onto the closed event set. payload
// is the delivered body, kept verbatim on subscription events for the ledger.
func Decode(ev stripelib.Event, payload []byte) (Event, error) {
	h := Header{ID: ev.ID, Type: string(ev.Type)}
	if h.ID == "" {
		return nil, fmt.Errorf("event has no id")
	}
	if ev.Data == nil {
		return Unhandled{Header: h, Reason: "no data"}, nil
	}

	switch h.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var s checkoutSessionObject
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout.session: %w", err)
		}
		if s.Mode != string(stripelib.CheckoutSessionModePayment) {
			return Unhandled{Header: h, Reason: "session mode " + s.Mode}, nil
		}
		// delayed methods complete unpaid and settle on async_payment_succeeded
		if s.PaymentStatus != "paid" {
			return Unhandled{Header: h, Reason: "payment status " + s.PaymentStatus}, nil
		}
		return CheckoutCompleted{Header: h, SessionID: s.ID, PaymentIntentID: s.PaymentIntent, Metadata: s.Metadata}, nil

	case "customer.subscription.created", "customer.subscription.updated":
		var s subscriptionObject
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		out := SubscriptionChanged{
			Header:         h,
			Action:         types.SubscriptionEventUpdated,
			SubscriptionID: s.ID,
			CustomerID:     s.Customer,
			Status:         types.ProviderSubscriptionStatus(s.Status),
			Metadata:       s.Metadata,
			Payload:        payload,
		}
		if strings.HasSuffix(h.Type, ".created") {
			out.Action = types.SubscriptionEventCreated
		}
		if len(s.Items.Data) > 0 {
			out.PriceID = s.Items.Data[0].Price.ID
		}
		if s.TrialEnd != nil && *s.TrialEnd > 0 {
			te := time.Unix(*s.TrialEnd, 0).UTC()
			out.TrialEnd = &te
		}
		return out, nil

	case "customer.subscription.deleted":
		var s subscriptionObject
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		return SubscriptionDeleted{Header: h, SubscriptionID: s.ID, CustomerID: s.Customer, Metadata: s.Metadata, Payload: payload}, nil

	case "account.updated":
		var a accountObject
		if err := json.Unmarshal(ev.Data.Raw, &a); err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}
		out := AccountUpdated{Header: h, AccountID: a.ID, ChargesEnabled: a.ChargesEnabled, PayoutsEnabled: a.PayoutsEnabled}
		if out.AccountID == "" {
			out.AccountID = ev.Account
		}
		if a.Requirements.DisabledReason != nil {
			out.DisabledReason = *a.Requirements.DisabledReason
		}
		return out, nil
	}
	return Unhandled{Header: h, Reason: "unrecognised type"}, nil
}
