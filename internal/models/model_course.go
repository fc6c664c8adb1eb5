package models

import (
	"time"

	"github.com/fatflowers/courseshop/pkg/types"
)

// Course is managed by the catalogue subsystem. Price is in minor units of Currency.
type Course struct {
	ID        string             `gorm:"column:id;type:uuid;primary_key" json:"id"`
	TenantID  string             `gorm:"column:tenant_id;type:uuid;not null;index" json:"tenant_id"`
	Title     string             `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Price     int64              `gorm:"column:price;type:bigint;not null" json:"price"`
	Currency  string             `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Status    types.CourseStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func (Course) TableName() string {
	return "course"
}

func (c *Course) Free() bool {
	return c.Price == 0
}
