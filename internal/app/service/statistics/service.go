package statistics

import (
	"context"
	"fmt"
	"sync"

	"github.com/fatflowers/courseshop/internal/models"
	"github.com/fatflowers/courseshop/pkg/apperr"
	"github.com/fatflowers/courseshop/pkg/types"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StatisticType string

const (
	// Settled sales, bucketed by paid_at
	StatisticTypeDailySalesCount StatisticType = "daily_sales_count"
	StatisticTypeDailyGmv        StatisticType = "daily_gmv"
	StatisticTypeTotalGmv        StatisticType = "total_gmv"

	// Enrollments, free and paid
	StatisticTypeDailyEnrollmentCount StatisticType = "daily_enrollment_count"
)

var paymentStatistics = []StatisticType{StatisticTypeDailySalesCount, StatisticTypeDailyGmv, StatisticTypeTotalGmv}

var allStatistics = append([]StatisticType{StatisticTypeDailyEnrollmentCount}, paymentStatistics...)

type SalesStatisticFilterType string

const (
	SalesStatisticFilterTypeTenantID  SalesStatisticFilterType = "tenant_id"
	SalesStatisticFilterTypeUserID    SalesStatisticFilterType = "user_id"
	SalesStatisticFilterTypeCreatedAt SalesStatisticFilterType = "created_at"
	SalesStatisticFilterTypeCurrency  SalesStatisticFilterType = "currency"
	SalesStatisticFilterTypePaidAt    SalesStatisticFilterType = "paid_at"
	SalesStatisticFilterTypeCourseID  SalesStatisticFilterType = "course_id"
	SalesStatisticFilterTypeIsFree    SalesStatisticFilterType = "is_free"
)

// validFilters lists the statistics each filter field can be applied to.
// Fields outside this table are rejected.
var validFilters = map[SalesStatisticFilterType][]StatisticType{
	SalesStatisticFilterTypeTenantID:  allStatistics,
	SalesStatisticFilterTypeUserID:    allStatistics,
	SalesStatisticFilterTypeCreatedAt: allStatistics,
	SalesStatisticFilterTypeCurrency:  paymentStatistics,
	SalesStatisticFilterTypePaidAt:    paymentStatistics,
	SalesStatisticFilterTypeCourseID:  {StatisticTypeDailyEnrollmentCount},
	SalesStatisticFilterTypeIsFree:    {StatisticTypeDailyEnrollmentCount},
}

type SalesStatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type SalesStatisticRequest struct {
	Filters   []*types.CommonFilter     `json:"filters"`
	DataItems []*SalesStatisticDataItem `json:"data_items"`
}

// Validate rejects unknown statistics and unknown or malformed filters.
func (r *SalesStatisticRequest) Validate() error {
	if r == nil || len(r.DataItems) == 0 {
		return apperr.BadRequest("data_items is required")
	}
	for _, di := range r.DataItems {
		if di == nil || !lo.Contains(allStatistics, di.ID) {
			return apperr.BadRequest("invalid data item id")
		}
	}
	for _, f := range r.Filters {
		if f == nil {
			return apperr.BadRequest("nil filter")
		}
		if _, ok := validFilters[SalesStatisticFilterType(f.Field)]; !ok {
			return apperr.BadRequest("unsupported filter field: %s", f.Field)
		}
		if err := f.Validate(); err != nil {
			return apperr.BadRequest("%s", err.Error())
		}
	}
	return nil
}

// applicable reports whether every filter of the request can be applied to t.
func (r *SalesStatisticRequest) applicable(t StatisticType) bool {
	for _, f := range r.Filters {
		if !lo.Contains(validFilters[SalesStatisticFilterType(f.Field)], t) {
			return false
		}
	}
	return true
}

// filterSet composes a WHERE clause from request filters, with custom handling
// for is_free.
type filterSet []*types.CommonFilter

func (fs filterSet) Build(builder clause.Builder) {
	if len(fs) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, filter := range fs {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		switch SalesStatisticFilterType(filter.Field) {
		case SalesStatisticFilterTypeIsFree:
			if fmt.Sprint(filter.Values[0]) == "true" {
				builder.WriteString("payment_id IS NULL")
			} else {
				builder.WriteString("payment_id IS NOT NULL")
			}
		default:
			filter.Build(builder)
		}
	}
}

type SalesStatisticResponseDataItem struct {
	Date   string `json:"date,omitempty"`
	Label  string `json:"label,omitempty"`
	Value  int64  `json:"value"`
	Value2 int64  `json:"value2,omitempty"`
	Value3 int64  `json:"value3,omitempty"`
}

type SalesStatisticResponse struct {
	DataItems map[StatisticType][]SalesStatisticResponseDataItem `json:"data_items"`
}

// Service computes sales reports over settled payments and enrollments.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

var Module = fx.Options(
	fx.Provide(New),
)

// day renders a timestamp column as YYYY-MM-DD in the connected dialect.
func (s *Service) day(column string) string {
	if s.db.Dialector.Name() == "sqlite" {
		return fmt.Sprintf("strftime('%%Y-%%m-%%d', %s)", column)
	}
	return fmt.Sprintf("TO_CHAR(%s, 'YYYY-MM-DD')", column)
}

func (s *Service) settled(ctx context.Context, filters filterSet) *gorm.DB {
	return s.db.WithContext(ctx).Table(models.Payment{}.TableName()).
		Where("status = ?", types.PaymentStatusSucceeded).
		Where(clause.Where{Exprs: []clause.Expression{filters}})
}

func (s *Service) getDailySalesCount(ctx context.Context, filters filterSet) ([]SalesStatisticResponseDataItem, error) {
	var results []SalesStatisticResponseDataItem
	d := s.day("paid_at")
	err := s.settled(ctx, filters).
		Select(d + " AS date, count(*) AS value").
		Group(d).
		Order("date DESC").
		Scan(&results).Error
	return results, err
}

func (s *Service) getDailyGmv(ctx context.Context, filters filterSet) ([]SalesStatisticResponseDataItem, error) {
	var results []SalesStatisticResponseDataItem
	d := s.day("paid_at")
	err := s.settled(ctx, filters).
		Select(d + " AS date, currency AS label, sum(amount) AS value, sum(platform_fee) AS value2").
		Group(d).
		Group("currency").
		Order("date DESC, label").
		Scan(&results).Error
	return results, err
}

func (s *Service) getTotalGmv(ctx context.Context, filters filterSet) ([]SalesStatisticResponseDataItem, error) {
	var results []SalesStatisticResponseDataItem
	err := s.settled(ctx, filters).
		Select("currency AS label, sum(amount) AS value, sum(platform_fee) AS value2, count(*) AS value3").
		Group("currency").
		Order("label").
		Scan(&results).Error
	return results, err
}

func (s *Service) getDailyEnrollmentCount(ctx context.Context, filters filterSet) ([]SalesStatisticResponseDataItem, error) {
	var results []SalesStatisticResponseDataItem
	d := s.day("created_at")
	kind := "CASE WHEN payment_id IS NULL THEN 'free' ELSE 'paid' END"
	err := s.db.WithContext(ctx).Table(models.Enrollment{}.TableName()).
		Where(clause.Where{Exprs: []clause.Expression{filters}}).
		Select(d + " AS date, " + kind + " AS label, count(*) AS value").
		Group(d).
		Group(kind).
		Order("date DESC, label").
		Scan(&results).Error
	return results, err
}

func (s *Service) getSalesStatistic(ctx context.Context, filters filterSet, t StatisticType) ([]SalesStatisticResponseDataItem, error) {
	switch t {
	case StatisticTypeDailySalesCount:
		return s.getDailySalesCount(ctx, filters)
	case StatisticTypeDailyGmv:
		return s.getDailyGmv(ctx, filters)
	case StatisticTypeTotalGmv:
		return s.getTotalGmv(ctx, filters)
	case StatisticTypeDailyEnrollmentCount:
		return s.getDailyEnrollmentCount(ctx, filters)
	default:
		return nil, apperr.BadRequest("invalid data item id: %s", t)
	}
}

// GetSalesStatistic computes every requested data item concurrently. A data
// item that one of the filters cannot apply to is returned empty.
func (s *Service) GetSalesStatistic(ctx context.Context, request *SalesStatisticRequest) (*SalesStatisticResponse, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var mu sync.Mutex
	results := make(map[StatisticType][]SalesStatisticResponseDataItem, len(request.DataItems))
	g, gctx := errgroup.WithContext(ctx)
	for _, item := range request.DataItems {
		g.Go(func() error {
			var res []SalesStatisticResponseDataItem
			if request.applicable(item.ID) {
				var err error
				if res, err = s.getSalesStatistic(gctx, filterSet(request.Filters), item.ID); err != nil {
					return apperr.Internal(fmt.Sprintf("statistic %s", item.ID), err)
				}
			}
			mu.Lock()
			results[item.ID] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &SalesStatisticResponse{DataItems: results}, nil
}
