// Package webhook verifies provider deliveries and routes each decoded event
// to the component that owns it.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/samber/lo"
	"go.uber.org/zap"

	notificationlog "github.com/fatflowers/courseshop/internal/app/service/notification_log"
	"github.com/fatflowers/courseshop/internal/models"
	stripeclient "github.com/fatflowers/courseshop/internal/platform/stripe"
	"github.com/fatflowers/courseshop/pkg/apperr"
	cfgpkg "github.com/fatflowers/courseshop/pkg/config"
	"github.com/fatflowers/courseshop/pkg/logctx"
	"github.com/fatflowers/courseshop/pkg/metrics"
)

type Channel string

const (
	// ChannelBilling receives platform account events: plan subscriptions.
	ChannelBilling Channel = "billing"
	// ChannelConnect receives events raised on tenants' connected accounts.
	ChannelConnect Channel = "connect"
)

// ErrChannelNotConfigured is returned when the channel has no signing secret.
var ErrChannelNotConfigured = errors.New("webhook channel not configured")

type Outcome string

const (
	OutcomeHandled   Outcome = "handled"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeFailed    Outcome = "failed"
)

type Finalizer interface {
	Finalize(ctx context.Context, ev stripeclient.CheckoutCompleted) error
}

type Lifecycle interface {
	HasApplied(ctx context.Context, eventID string) (bool, error)
	ApplyChange(ctx context.Context, ev stripeclient.SubscriptionChanged) (bool, error)
	ApplyDeleted(ctx context.Context, ev stripeclient.SubscriptionDeleted) (bool, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, ev stripeclient.AccountUpdated) error
}

// Result describes what happened to one verified delivery.
type Result struct {
	EventID   string
	EventType string
	Kind      string
	Outcome   Outcome
	Err       error
}

type Service struct {
	log        *zap.SugaredLogger
	secrets    map[Channel]string
	settlement Finalizer
	lifecycle  Lifecycle
	connect    Reconciler
	audit      *notificationlog.Service
}

func NewService(cfg *cfgpkg.Config, settlement Finalizer, lifecycle Lifecycle, connect Reconciler, audit *notificationlog.Service, log *zap.SugaredLogger) *Service {
	return &Service{
		log: log,
		secrets: map[Channel]string{
			ChannelBilling: cfg.Stripe.BillingWebhookSecret,
			ChannelConnect: cfg.Stripe.ConnectWebhookSecret,
		},
		settlement: settlement,
		lifecycle:  lifecycle,
		connect:    connect,
		audit:      audit,
	}
}

// Ingest verifies payload against the channel secret and applies the event.
//
// Only verification failures are returned as errors: ErrChannelNotConfigured
// or an apperr.ErrBadRequest wrapping the signature error. Anything that goes
// wrong after verification is reported in Result and the delivery is still
// acknowledged, so the provider does not retry an event that cannot succeed.
func (s *Service) Ingest(ctx context.Context, channel Channel, payload []byte, signature string) (*Result, error) {
	lg := logctx.FromCtx(ctx, s.log).With("channel", channel)

	secret, ok := s.secrets[channel]
	if !ok || secret == "" {
		metrics.WebhookRejectedTotal.WithLabelValues(string(channel), "not_configured").Inc()
		lg.Errorw("webhook_channel_not_configured")
		return nil, ErrChannelNotConfigured
	}

	raw, err := stripeclient.VerifyEvent(payload, signature, secret)
	if err != nil {
		reason := "invalid_signature"
		if errors.Is(err, stripeclient.ErrMissingSignature) {
			reason = "missing_signature"
		}
		metrics.WebhookRejectedTotal.WithLabelValues(string(channel), reason).Inc()
		lg.Warnw("webhook_signature_rejected", "reason", reason, "error", err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrBadRequest, err)
	}

	res := &Result{EventID: raw.ID, EventType: string(raw.Type)}
	lg = lg.With("event_id", res.EventID, "event_type", res.EventType)
	s.record(ctx, channel, res, models.WebhookDeliveryStatusReceived)

	ev, err := stripeclient.Decode(raw, payload)
	if err != nil {
		res.Kind, res.Outcome, res.Err = "undecodable", OutcomeFailed, err
	} else {
		res.Kind = kindOf(ev)
		res.Outcome, res.Err = s.dispatch(ctx, ev)
	}

	metrics.WebhookEventsTotal.WithLabelValues(string(channel), res.Kind, string(res.Outcome)).Inc()
	s.record(ctx, channel, res, deliveryStatus(res.Outcome))
	if res.Err != nil {
		lg.Errorw("webhook_event_failed", "kind", res.Kind, "error", res.Err)
	} else {
		lg.Infow("webhook_event_handled", "kind", res.Kind, "outcome", res.Outcome)
	}
	return res, nil
}

// dispatch applies one event. A panic in a downstream component is turned
// into a failed outcome.
func (s *Service) dispatch(ctx context.Context, ev stripeclient.Event) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			logctx.FromCtx(ctx, s.log).Errorw("webhook_event_panic", "event_id", ev.EventID(), "panic", r, "stack", string(debug.Stack()))
			outcome, err = OutcomeFailed, fmt.Errorf("%w: panic: %v", apperr.ErrInternal, r)
		}
	}()

	switch e := ev.(type) {
	case stripeclient.CheckoutCompleted:
		return outcomeOf(true, s.settlement.Finalize(ctx, e))

	case stripeclient.SubscriptionChanged:
		if seen, err := s.lifecycle.HasApplied(ctx, e.EventID()); err != nil || seen {
			return outcomeOf(!seen, err)
		}
		return outcomeOf(s.lifecycle.ApplyChange(ctx, e))

	case stripeclient.SubscriptionDeleted:
		if seen, err := s.lifecycle.HasApplied(ctx, e.EventID()); err != nil || seen {
			return outcomeOf(!seen, err)
		}
		return outcomeOf(s.lifecycle.ApplyDeleted(ctx, e))

	case stripeclient.AccountUpdated:
		return outcomeOf(true, s.connect.Reconcile(ctx, e))

	case stripeclient.Unhandled:
		logctx.FromCtx(ctx, s.log).Debugw("webhook_event_ignored", "event_id", e.EventID(), "event_type", e.EventType(), "reason", e.Reason)
		return OutcomeIgnored, nil
	}
	return OutcomeFailed, fmt.Errorf("%w: unknown event %T", apperr.ErrInternal, ev)
}

func outcomeOf(applied bool, err error) (Outcome, error) {
	switch {
	case err != nil:
		return OutcomeFailed, err
	case !applied:
		return OutcomeDuplicate, nil
	default:
		return OutcomeHandled, nil
	}
}

func kindOf(ev stripeclient.Event) string {
	switch ev.(type) {
	case stripeclient.CheckoutCompleted:
		return "checkout_completed"
	case stripeclient.SubscriptionChanged:
		return "subscription_changed"
	case stripeclient.SubscriptionDeleted:
		return "subscription_deleted"
	case stripeclient.AccountUpdated:
		return "account_updated"
	default:
		return "unhandled"
	}
}

func deliveryStatus(o Outcome) models.WebhookDeliveryStatus {
	switch o {
	case OutcomeHandled:
		return models.WebhookDeliveryStatusHandled
	case OutcomeDuplicate:
		return models.WebhookDeliveryStatusDuplicate
	case OutcomeIgnored:
		return models.WebhookDeliveryStatusIgnored
	default:
		return models.WebhookDeliveryStatusHandleFailed
	}
}

func (s *Service) record(ctx context.Context, channel Channel, res *Result, status models.WebhookDeliveryStatus) {
	traceID := logctx.TraceID(ctx)
	var errMsg *string
	if res.Err != nil {
		errMsg = lo.ToPtr(res.Err.Error())
	}
	s.audit.Save(ctx, &models.WebhookDeliveryLog{
		Channel:   string(channel),
		EventID:   res.EventID,
		EventType: res.EventType,
		TraceID:   traceID,
		Status:    status,
		Error:     errMsg,
	})
}
