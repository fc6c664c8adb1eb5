package models

import (
	"time"

	"github.com/fatflowers/courseshop/pkg/types"

	"gorm.io/datatypes"
)

// SubscriptionHistory is the append-only ledger of tenant plan transitions.
// ExternalEventID is unique: a row existing for an event id means the event was applied.
type SubscriptionHistory struct {
	ID                     string                      `gorm:"column:id;type:uuid;primary_key" json:"id"`
	TenantID               string                      `gorm:"column:tenant_id;type:uuid;not null;index:idx_history_tenant_created,priority:1" json:"tenant_id"`
	ExternalSubscriptionID string                      `gorm:"column:external_subscription_id;type:varchar(128);not null" json:"external_subscription_id"`
	ExternalEventID        string                      `gorm:"column:external_event_id;type:varchar(128);not null;uniqueIndex" json:"external_event_id"`
	PreviousPlan           *types.Plan                 `gorm:"column:previous_plan;type:varchar(32)" json:"previous_plan"`
	NewPlan                *types.Plan                 `gorm:"column:new_plan;type:varchar(32)" json:"new_plan"`
	PreviousStatus         *types.SubscriptionStatus   `gorm:"column:previous_status;type:varchar(32)" json:"previous_status"`
	NewStatus              types.SubscriptionStatus    `gorm:"column:new_status;type:varchar(32);not null" json:"new_status"`
	EventType              types.SubscriptionEventType `gorm:"column:event_type;type:varchar(64);not null" json:"event_type"`
	RawEventPayload        datatypes.JSON              `gorm:"column:raw_event_payload;type:jsonb" json:"raw_event_payload"`
	CreatedAt              time.Time                   `gorm:"index:idx_history_tenant_created,priority:2" json:"created_at"`
}

func (SubscriptionHistory) TableName() string {
	return "subscription_history"
}
