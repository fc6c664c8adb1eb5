package statistics

import (
	"context"
	"fmt"

	"github.com/fatflowers/courseshop/internal/models"
	"github.com/fatflowers/courseshop/pkg/apperr"
	"github.com/fatflowers/courseshop/pkg/types"

	"gorm.io/gorm/clause"
)

// scannableFields are the payment columns list filters and sorting may name.
var scannableFields = map[string]bool{
	"tenant_id":    true,
	"user_id":      true,
	"status":       true,
	"currency":     true,
	"amount":       true,
	"platform_fee": true,
	"paid_at":      true,
	"created_at":   true,
}

type ScanPaymentsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanPaymentsResponse struct {
	Items []*models.Payment `json:"items"`
	Total int64             `json:"total"`
}

// ScanPayments implements the paginated admin payment listing.
func (s *Service) ScanPayments(ctx context.Context, req *ScanPaymentsRequest) (*ScanPaymentsResponse, error) {
	if req == nil {
		return nil, apperr.BadRequest("nil request")
	}
	if req.Size <= 0 || req.Size > 200 {
		req.Size = 20
	}
	if req.From < 0 {
		req.From = 0
	}
	for _, f := range req.Filters {
		if f == nil || !scannableFields[f.Field] {
			return nil, apperr.BadRequest("unsupported filter")
		}
		if err := f.Validate(); err != nil {
			return nil, apperr.BadRequest("%s", err.Error())
		}
	}
	if req.SortBy != "" && !scannableFields[req.SortBy] {
		return nil, apperr.BadRequest("unsupported sort field: %s", req.SortBy)
	}

	where := clause.Where{Exprs: []clause.Expression{filterSet(req.Filters)}}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Payment{}).Where(where).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}

	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	var rows []*models.Payment
	q := s.db.WithContext(ctx).Model(&models.Payment{}).Where(where).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: sortBy}, Desc: req.SortOrder != "asc"},
			{Column: clause.Column{Name: "id"}, Desc: req.SortOrder != "asc"},
		}}).
		Limit(req.Size).
		Offset(req.From)
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return &ScanPaymentsResponse{Items: rows, Total: total}, nil
}
