package stripe

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	stripelib "github.com/stripe/stripe-go/v82"

	"github.com/fatflowers/courseshop/pkg/types"
)

func rawEvent(t *testing.T, id, typ string, object any) stripelib.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return stripelib.Event{ID: id, Type: stripelib.EventType(typ), Data: &stripelib.EventData{Raw: raw}}
}

func TestDecode_CheckoutSession(t *testing.T) {
	ev := rawEvent(t, "evt_1", "checkout.session.completed", map[string]any{
		"id":             "cs_1",
		"mode":           "payment",
		"payment_status": "paid",
		"payment_intent": "pi_1",
		"metadata":       map[string]string{"payment_id": "p1"},
	})
	got, err := Decode(ev, nil)
	require.NoError(t, err)
	cc, ok := got.(CheckoutCompleted)
	require.True(t, ok)
	require.Equal(t, "evt_1", cc.EventID())
	require.Equal(t, "pi_1", cc.PaymentIntentID)
	require.Equal(t, "p1", cc.Metadata["payment_id"])

	sub := rawEvent(t, "evt_2", "checkout.session.completed", map[string]any{"id": "cs_2", "mode": "subscription", "payment_status": "paid"})
	got, err = Decode(sub, nil)
	require.NoError(t, err)
	require.IsType(t, Unhandled{}, got)

	unpaid := rawEvent(t, "evt_3", "checkout.session.completed", map[string]any{"id": "cs_3", "mode": "payment", "payment_status": "unpaid"})
	got, err = Decode(unpaid, nil)
	require.NoError(t, err)
	require.IsType(t, Unhandled{}, got)
}

func TestDecode_Subscription(t *testing.T) {
	trialEnd := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)
	ev := rawEvent(t, "evt_1", "customer.subscription.created", map[string]any{
		"id":        "sub_1",
		"customer":  "cus_1",
		"status":    "trialing",
		"trial_end": trialEnd.Unix(),
		"items":     map[string]any{"data": []any{map[string]any{"price": map[string]any{"id": "price_growth"}}}},
		"metadata":  map[string]string{"tenant_id": "t1"},
	})
	got, err := Decode(ev, []byte(`{"id":"evt_1"}`))
	require.NoError(t, err)
	sc, ok := got.(SubscriptionChanged)
	require.True(t, ok)
	require.Equal(t, types.SubscriptionEventCreated, sc.Action)
	require.Equal(t, types.ProviderStatusTrialing, sc.Status)
	require.Equal(t, "price_growth", sc.PriceID)
	require.Equal(t, trialEnd, *sc.TrialEnd)
	require.Equal(t, "t1", sc.Metadata["tenant_id"])
	require.JSONEq(t, `{"id":"evt_1"}`, string(sc.Payload))

	del := rawEvent(t, "evt_2", "customer.subscription.deleted", map[string]any{"id": "sub_1", "status": "canceled"})
	got, err = Decode(del, nil)
	require.NoError(t, err)
	require.IsType(t, SubscriptionDeleted{}, got)
}

func TestDecode_Account(t *testing.T) {
	ev := rawEvent(t, "evt_1", "account.updated", map[string]any{
		"id":              "acct_1",
		"charges_enabled": true,
		"payouts_enabled": false,
		"requirements":    map[string]any{"disabled_reason": "requirements.past_due"},
	})
	got, err := Decode(ev, nil)
	require.NoError(t, err)
	au := got.(AccountUpdated)
	require.Equal(t, "acct_1", au.AccountID)
	require.True(t, au.ChargesEnabled)
	require.False(t, au.PayoutsEnabled)
	require.Equal(t, "requirements.past_due", au.DisabledReason)
}

func TestDecode_UnknownAndMalformed(t *testing.T) {
	got, err := Decode(rawEvent(t, "evt_1", "invoice.paid", map[string]any{"id": "in_1"}), nil)
	require.NoError(t, err)
	require.IsType(t, Unhandled{}, got)

	bad := stripelib.Event{ID: "evt_2", Type: "customer.subscription.updated", Data: &stripelib.EventData{Raw: []byte(`[1,2`)}}
	_, err = Decode(bad, nil)
	require.Error(t, err)

	_, err = Decode(stripelib.Event{Type: "account.updated"}, nil)
	require.Error(t, err)
}

func TestVerifyEvent(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"invoice.paid","data":{"object":{"id":"in_1"}}}`)
	secret := "whsec_test"

	_, err := VerifyEvent(payload, "", secret)
	require.ErrorIs(t, err, ErrMissingSignature)

	_, err = VerifyEvent(payload, SignPayload(payload, "whsec_other", time.Now()), secret)
	require.ErrorIs(t, err, ErrInvalidSignature)

	ev, err := VerifyEvent(payload, SignPayload(payload, secret, time.Now()), secret)
	require.NoError(t, err)
	require.Equal(t, "evt_1", ev.ID)

	// any change to the body after signing is rejected
	tampered := append([]byte{}, payload...)
	tampered[len(tampered)-2] = ' '
	_, err = VerifyEvent(tampered, SignPayload(payload, secret, time.Now()), secret)
	require.ErrorIs(t, err, ErrInvalidSignature)
}
