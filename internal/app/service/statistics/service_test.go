package statistics

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fatflowers/courseshop/internal/models"
	"github.com/fatflowers/courseshop/internal/platform/db/dbtest"
	"github.com/fatflowers/courseshop/pkg/apperr"
	"github.com/fatflowers/courseshop/pkg/tool"
	"github.com/fatflowers/courseshop/pkg/types"
)

func seedPayment(t *testing.T, gdb *gorm.DB, tenantID, userID string, amount, fee int64, status types.PaymentStatus, paidAt time.Time) *models.Payment {
	t.Helper()
	p := &models.Payment{
		ID:          tool.GenerateUUIDV7(),
		TenantID:    tenantID,
		UserID:      userID,
		Amount:      amount,
		PlatformFee: fee,
		Currency:    "usd",
		Status:      status,
	}
	if status == types.PaymentStatusSucceeded {
		p.PaidAt = lo.ToPtr(paidAt)
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}

func seedEnrollment(t *testing.T, gdb *gorm.DB, tenantID, userID, courseID string, paymentID *string) {
	t.Helper()
	require.NoError(t, gdb.Create(&models.Enrollment{
		ID: tool.GenerateUUIDV7(), UserID: userID, CourseID: courseID, TenantID: tenantID,
		PaymentID: paymentID, PurchaseCurrency: "usd",
	}).Error)
}

func TestGetSalesStatistic(t *testing.T) {
	gdb := dbtest.New(t)
	acme := dbtest.Tenant(t, gdb, "acme")
	other := dbtest.Tenant(t, gdb, "other")
	buyer := dbtest.User(t, gdb, types.UserRoleStudent, acme.ID)
	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	p1 := seedPayment(t, gdb, acme.ID, buyer.ID, 1000, 100, types.PaymentStatusSucceeded, day1)
	seedPayment(t, gdb, acme.ID, buyer.ID, 500, 50, types.PaymentStatusSucceeded, day1.Add(time.Hour))
	seedPayment(t, gdb, acme.ID, buyer.ID, 700, 70, types.PaymentStatusSucceeded, day2)
	seedPayment(t, gdb, acme.ID, buyer.ID, 900, 90, types.PaymentStatusFailed, day2)
	seedPayment(t, gdb, other.ID, buyer.ID, 300, 30, types.PaymentStatusSucceeded, day2)

	c1 := dbtest.Course(t, gdb, acme.ID, 1000)
	c2 := dbtest.Course(t, gdb, acme.ID, 0)
	seedEnrollment(t, gdb, acme.ID, buyer.ID, c1.ID, &p1.ID)
	seedEnrollment(t, gdb, acme.ID, buyer.ID, c2.ID, nil)

	svc := New(gdb)
	res, err := svc.GetSalesStatistic(context.Background(), &SalesStatisticRequest{
		Filters: []*types.CommonFilter{{Field: "tenant_id", Operator: types.CommonFilterOperatorEq, Values: []any{acme.ID}}},
		DataItems: []*SalesStatisticDataItem{
			{ID: StatisticTypeDailySalesCount},
			{ID: StatisticTypeDailyGmv},
			{ID: StatisticTypeTotalGmv},
			{ID: StatisticTypeDailyEnrollmentCount},
		},
	})
	require.NoError(t, err)

	require.Equal(t, []SalesStatisticResponseDataItem{
		{Date: "2026-03-02", Value: 1},
		{Date: "2026-03-01", Value: 2},
	}, res.DataItems[StatisticTypeDailySalesCount])

	require.Equal(t, []SalesStatisticResponseDataItem{
		{Date: "2026-03-02", Label: "usd", Value: 700, Value2: 70},
		{Date: "2026-03-01", Label: "usd", Value: 1500, Value2: 150},
	}, res.DataItems[StatisticTypeDailyGmv])

	require.Equal(t, []SalesStatisticResponseDataItem{
		{Label: "usd", Value: 2200, Value2: 220, Value3: 3},
	}, res.DataItems[StatisticTypeTotalGmv])

	enrollments := res.DataItems[StatisticTypeDailyEnrollmentCount]
	require.Len(t, enrollments, 2)
	require.ElementsMatch(t, []string{"free", "paid"}, lo.Map(enrollments, func(it SalesStatisticResponseDataItem, _ int) string { return it.Label }))
}

func TestGetSalesStatistic_FilterApplicability(t *testing.T) {
	gdb := dbtest.New(t)
	acme := dbtest.Tenant(t, gdb, "acme")
	buyer := dbtest.User(t, gdb, types.UserRoleStudent, acme.ID)
	c := dbtest.Course(t, gdb, acme.ID, 0)
	seedEnrollment(t, gdb, acme.ID, buyer.ID, c.ID, nil)
	seedPayment(t, gdb, acme.ID, buyer.ID, 500, 50, types.PaymentStatusSucceeded, time.Now().UTC())

	svc := New(gdb)
	res, err := svc.GetSalesStatistic(context.Background(), &SalesStatisticRequest{
		Filters:   []*types.CommonFilter{{Field: "is_free", Operator: types.CommonFilterOperatorEq, Values: []any{true}}},
		DataItems: []*SalesStatisticDataItem{{ID: StatisticTypeDailyEnrollmentCount}, {ID: StatisticTypeTotalGmv}},
	})
	require.NoError(t, err)
	require.Len(t, res.DataItems[StatisticTypeDailyEnrollmentCount], 1)
	require.Equal(t, "free", res.DataItems[StatisticTypeDailyEnrollmentCount][0].Label)
	require.Contains(t, res.DataItems, StatisticTypeTotalGmv)
	require.Empty(t, res.DataItems[StatisticTypeTotalGmv])

	_, err = svc.GetSalesStatistic(context.Background(), &SalesStatisticRequest{
		Filters:   []*types.CommonFilter{{Field: "amount; drop table payment", Operator: types.CommonFilterOperatorEq, Values: []any{1}}},
		DataItems: []*SalesStatisticDataItem{{ID: StatisticTypeTotalGmv}},
	})
	require.ErrorIs(t, err, apperr.ErrBadRequest)

	_, err = svc.GetSalesStatistic(context.Background(), &SalesStatisticRequest{DataItems: []*SalesStatisticDataItem{{ID: "renewal_rate"}}})
	require.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestScanPayments(t *testing.T) {
	gdb := dbtest.New(t)
	acme := dbtest.Tenant(t, gdb, "acme")
	buyer := dbtest.User(t, gdb, types.UserRoleStudent, acme.ID)
	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		seedPayment(t, gdb, acme.ID, buyer.ID, int64(100*(i+1)), 10, types.PaymentStatusSucceeded, now)
	}
	seedPayment(t, gdb, acme.ID, buyer.ID, 999, 99, types.PaymentStatusFailed, now)

	svc := New(gdb)
	res, err := svc.ScanPayments(context.Background(), &ScanPaymentsRequest{
		Filters:   []*types.CommonFilter{{Field: "status", Operator: types.CommonFilterOperatorEq, Values: []any{"succeeded"}}},
		Size:      2,
		SortBy:    "amount",
		SortOrder: "asc",
	})
	require.NoError(t, err)
	require.EqualValues(t, 3, res.Total)
	require.Len(t, res.Items, 2)
	require.EqualValues(t, 100, res.Items[0].Amount)
	require.EqualValues(t, 200, res.Items[1].Amount)

	_, err = svc.ScanPayments(context.Background(), &ScanPaymentsRequest{SortBy: "metadata"})
	require.ErrorIs(t, err, apperr.ErrBadRequest)
}
