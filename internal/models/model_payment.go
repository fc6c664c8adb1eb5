package models

import (
	"time"

	"github.com/fatflowers/courseshop/pkg/types"

	"gorm.io/datatypes"
)

// PaymentMetadata is the snapshot taken when the checkout session is opened.
type PaymentMetadata struct {
	CourseIDs         []string `json:"course_ids"`
	CommissionRateBps int64    `json:"commission_rate_bps"`
	ConnectAccountID  string   `json:"connect_account_id"`
	Error             string   `json:"error,omitempty"`
}

// Payment is one checkout attempt for a batch of paid courses.
// Status only moves pending -> succeeded or pending -> failed.
type Payment struct {
	ID                        string                               `gorm:"column:id;type:uuid;primary_key" json:"id"`
	TenantID                  string                               `gorm:"column:tenant_id;type:uuid;not null;index:idx_payment_tenant_created,priority:1" json:"tenant_id"`
	UserID                    string                               `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Amount                    int64                                `gorm:"column:amount;type:bigint;not null" json:"amount"`
	PlatformFee               int64                                `gorm:"column:platform_fee;type:bigint;not null" json:"platform_fee"`
	Currency                  string                               `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Status                    types.PaymentStatus                  `gorm:"column:status;type:varchar(32);not null" json:"status"`
	ExternalCheckoutSessionID *string                              `gorm:"column:external_checkout_session_id;type:varchar(255);index" json:"external_checkout_session_id"`
	ExternalPaymentIntentID   *string                              `gorm:"column:external_payment_intent_id;type:varchar(255)" json:"external_payment_intent_id"`
	PaidAt                    *time.Time                           `gorm:"column:paid_at" json:"paid_at"`
	Metadata                  datatypes.JSONType[*PaymentMetadata] `gorm:"column:metadata;type:jsonb;default:'{}'" json:"metadata"`
	CreatedAt                 time.Time                            `gorm:"index:idx_payment_tenant_created,priority:2" json:"created_at"`
	UpdatedAt                 time.Time                            `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payment"
}

// PaymentItem captures the course price at purchase time.
type PaymentItem struct {
	ID                 string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	PaymentID          string    `gorm:"column:payment_id;type:uuid;not null;index" json:"payment_id"`
	CourseID           string    `gorm:"column:course_id;type:uuid;not null" json:"course_id"`
	PriceAtPurchase    int64     `gorm:"column:price_at_purchase;type:bigint;not null" json:"price_at_purchase"`
	CurrencyAtPurchase string    `gorm:"column:currency_at_purchase;type:varchar(8);not null" json:"currency_at_purchase"`
	CreatedAt          time.Time `json:"created_at"`
}

func (PaymentItem) TableName() string {
	return "payment_item"
}
