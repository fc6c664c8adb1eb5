package models

import (
	"time"
)

type WebhookDeliveryStatus string

const (
	WebhookDeliveryStatusReceived     WebhookDeliveryStatus = "received"
	WebhookDeliveryStatusHandled      WebhookDeliveryStatus = "handled"
	WebhookDeliveryStatusDuplicate    WebhookDeliveryStatus = "duplicate"
	WebhookDeliveryStatusIgnored      WebhookDeliveryStatus = "ignored"
	WebhookDeliveryStatusHandleFailed WebhookDeliveryStatus = "handle_failed"
)

// WebhookDeliveryLog records every verified provider delivery for support tooling.
// It is an audit trail only; idempotency is decided by SubscriptionHistory.
type WebhookDeliveryLog struct {
	ID        string                `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Channel   string                `gorm:"column:channel;type:varchar(32);not null" json:"channel"`
	EventID   string                `gorm:"column:event_id;type:varchar(128);not null;index" json:"event_id"`
	EventType string                `gorm:"column:event_type;type:varchar(128);not null" json:"event_type"`
	TraceID   string                `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	Status    WebhookDeliveryStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	Error     *string               `gorm:"column:error;type:text" json:"error"`
	CreatedAt time.Time             `json:"created_at"`
}

func (WebhookDeliveryLog) TableName() string { return "webhook_delivery_log" }
