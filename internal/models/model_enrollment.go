package models

import "time"

// CartItem is owned by the cart subsystem; settlement removes rows it has granted.
type CartItem struct {
	ID        string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID    string    `gorm:"column:user_id;type:uuid;not null;uniqueIndex:unique_cart_user_course,priority:1" json:"user_id"`
	TenantID  string    `gorm:"column:tenant_id;type:uuid;not null" json:"tenant_id"`
	CourseID  string    `gorm:"column:course_id;type:uuid;not null;uniqueIndex:unique_cart_user_course,priority:2" json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (CartItem) TableName() string {
	return "cart_item"
}

// Enrollment grants a user access to a course. One row per (user, course);
// writers insert-or-ignore on that pair.
type Enrollment struct {
	ID               string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID           string    `gorm:"column:user_id;type:uuid;not null;uniqueIndex:unique_enrollment_user_course,priority:1" json:"user_id"`
	CourseID         string    `gorm:"column:course_id;type:uuid;not null;uniqueIndex:unique_enrollment_user_course,priority:2" json:"course_id"`
	TenantID         string    `gorm:"column:tenant_id;type:uuid;not null;index" json:"tenant_id"`
	PaymentID        *string   `gorm:"column:payment_id;type:uuid" json:"payment_id"`
	PurchasePrice    int64     `gorm:"column:purchase_price;type:bigint;not null" json:"purchase_price"`
	PurchaseCurrency string    `gorm:"column:purchase_currency;type:varchar(8);not null" json:"purchase_currency"`
	CreatedAt        time.Time `json:"created_at"`
}

func (Enrollment) TableName() string {
	return "enrollment"
}
