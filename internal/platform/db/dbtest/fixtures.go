package dbtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fatflowers/courseshop/internal/models"
	"github.com/fatflowers/courseshop/pkg/tool"
	"github.com/fatflowers/courseshop/pkg/types"
)

// Tenant inserts an active tenant that can take payments. mutate runs before the insert.
func Tenant(t *testing.T, gdb *gorm.DB, slug string, mutate ...func(*models.Tenant)) *models.Tenant {
	t.Helper()
	acct := "acct_" + slug
	tn := &models.Tenant{
		ID:                       tool.GenerateUUIDV7(),
		Slug:                     slug,
		Name:                     slug,
		Status:                   types.TenantStatusActive,
		CommissionRateBps:        1000,
		ExternalConnectAccountID: &acct,
		ChargesEnabled:           true,
		PayoutsEnabled:           true,
		ConnectStatus:            types.ConnectStatusActive,
	}
	for _, m := range mutate {
		m(tn)
	}
	require.NoError(t, gdb.Create(tn).Error)
	return tn
}

func User(t *testing.T, gdb *gorm.DB, role types.UserRole, tenantID string) *models.User {
	t.Helper()
	u := &models.User{
		ID:    tool.GenerateUUIDV7(),
		Email: tool.GenerateUUIDV7() + "@example.com",
		Role:  role,
	}
	if tenantID != "" {
		u.TenantID = &tenantID
	}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

// Course inserts a published course priced in usd.
func Course(t *testing.T, gdb *gorm.DB, tenantID string, price int64, mutate ...func(*models.Course)) *models.Course {
	t.Helper()
	c := &models.Course{
		ID:       tool.GenerateUUIDV7(),
		TenantID: tenantID,
		Title:    "course " + tool.GenerateUUIDV7()[:8],
		Price:    price,
		Currency: "usd",
		Status:   types.CourseStatusPublished,
	}
	for _, m := range mutate {
		m(c)
	}
	require.NoError(t, gdb.Create(c).Error)
	return c
}

func CartItem(t *testing.T, gdb *gorm.DB, userID, tenantID, courseID string) {
	t.Helper()
	require.NoError(t, gdb.Create(&models.CartItem{
		ID:       tool.GenerateUUIDV7(),
		UserID:   userID,
		TenantID: tenantID,
		CourseID: courseID,
	}).Error)
}
