package stripe

import (
	"errors"
	"strings"

	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// SignatureHeader carries the provider signature of a webhook delivery.
const SignatureHeader = "Stripe-Signature"

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// VerifyEvent checks the signature over the raw request body and decodes the
// event envelope. payload must be the bytes exactly as received.
func VerifyEvent(payload []byte, sigHeader, secret string) (stripelib.Event, error) {
	if strings.TrimSpace(sigHeader) == "" {
		return stripelib.Event{}, ErrMissingSignature
	}
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripelib.Event{}, errors.Join(ErrInvalidSignature, err)
	}
	return event, nil
}
