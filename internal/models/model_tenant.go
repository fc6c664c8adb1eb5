package models

import (
	"time"

	"github.com/fatflowers/courseshop/pkg/types"
)

// Tenant is an isolated storefront. Rows are never deleted; suspension flips Status.
type Tenant struct {
	ID           string             `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Slug         string             `gorm:"column:slug;type:varchar(64);not null;uniqueIndex" json:"slug"`
	CustomDomain *string            `gorm:"column:custom_domain;type:varchar(255);uniqueIndex" json:"custom_domain"`
	Name         string             `gorm:"column:name;type:varchar(255)" json:"name"`
	Status       types.TenantStatus `gorm:"column:status;type:varchar(32);not null;default:'active'" json:"status"`

	// Platform plan billing. Plan and SubscriptionStatus stay nil until the first subscription event.
	Plan                   *types.Plan               `gorm:"column:plan;type:varchar(32)" json:"plan"`
	SubscriptionStatus     *types.SubscriptionStatus `gorm:"column:subscription_status;type:varchar(32)" json:"subscription_status"`
	TrialEndsAt            *time.Time                `gorm:"column:trial_ends_at" json:"trial_ends_at"`
	CommissionRateBps      int64                     `gorm:"column:commission_rate_bps;type:bigint;not null" json:"commission_rate_bps"`
	ExternalCustomerID     *string                   `gorm:"column:external_customer_id;type:varchar(128)" json:"external_customer_id"`
	ExternalSubscriptionID *string                   `gorm:"column:external_subscription_id;type:varchar(128)" json:"external_subscription_id"`

	// Connected account receiving payouts for course sales.
	ExternalConnectAccountID *string             `gorm:"column:external_connect_account_id;type:varchar(128);uniqueIndex" json:"external_connect_account_id"`
	ChargesEnabled           bool                `gorm:"column:charges_enabled;not null;default:false" json:"charges_enabled"`
	PayoutsEnabled           bool                `gorm:"column:payouts_enabled;not null;default:false" json:"payouts_enabled"`
	ConnectStatus            types.ConnectStatus `gorm:"column:connect_status;type:varchar(32);not null;default:'not_started'" json:"connect_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Tenant) TableName() string {
	return "tenant"
}

func (t *Tenant) Active() bool {
	return t != nil && t.Status == types.TenantStatusActive
}

// Domain returns the custom domain or "" when none is set.
func (t *Tenant) Domain() string {
	if t == nil || t.CustomDomain == nil {
		return ""
	}
	return *t.CustomDomain
}
