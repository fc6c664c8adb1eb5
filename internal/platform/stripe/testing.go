package stripe

import (
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
)

// SignPayload produces a signature header for payload the way the provider
// does. Used by tests and by local tooling that replays deliveries.
func SignPayload(payload []byte, secret string, at time.Time) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
		Scheme:    "v1",
	})
	return signed.Header
}

// SetSignature signs payload and sets the signature header on req.
func SetSignature(req *http.Request, payload []byte, secret string) {
	req.Header.Set(SignatureHeader, SignPayload(payload, secret, time.Now()))
}
