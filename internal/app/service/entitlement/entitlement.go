// Package entitlement holds the store writes that grant course access. Both
// run inside the caller's transaction so enrollment and cart cleanup commit
// together.
package entitlement

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/courseshop/internal/models"
)

// Grant inserts enrollments, skipping any (user, course) pair that already exists.
func Grant(tx *gorm.DB, rows []*models.Enrollment) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(&rows).Error
}

// ClearCart removes the user's cart rows for courseIDs.
func ClearCart(tx *gorm.DB, userID string, courseIDs []string) error {
	if len(courseIDs) == 0 {
		return nil
	}
	return tx.Where("user_id = ? AND course_id IN ?", userID, courseIDs).Delete(&models.CartItem{}).Error
}
