package models

import (
	"time"

	"github.com/fatflowers/courseshop/pkg/types"
)

// User is owned by the account subsystem; this service only reads it.
type User struct {
	ID        string         `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Email     string         `gorm:"column:email;type:varchar(255);not null" json:"email"`
	Role      types.UserRole `gorm:"column:role;type:varchar(32);not null" json:"role"`
	TenantID  *string        `gorm:"column:tenant_id;type:uuid;index" json:"tenant_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (User) TableName() string {
	return "app_user"
}

func (u *User) HomeTenantID() string {
	if u == nil || u.TenantID == nil {
		return ""
	}
	return *u.TenantID
}
