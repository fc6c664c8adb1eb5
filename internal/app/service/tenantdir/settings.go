package tenantdir

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/fatflowers/courseshop/internal/models"
	"github.com/fatflowers/courseshop/pkg/apperr"
	"github.com/fatflowers/courseshop/pkg/logctx"
	"github.com/fatflowers/courseshop/pkg/types"
)

// UpdateTenantSettingsRequest changes how a tenant is reached or whether it serves.
// Nil fields are left alone; an empty CustomDomain clears it.
type UpdateTenantSettingsRequest struct {
	CustomDomain *string             `json:"custom_domain"`
	Status       *types.TenantStatus `json:"status"`
	Name         *string             `json:"name"`
}

// UpdateSettings writes the tenant and invalidates both the keys it was
// reachable by before and after the write.
func (s *Service) UpdateSettings(ctx context.Context, tenantID string, req *UpdateTenantSettingsRequest) (*models.Tenant, error) {
	if req == nil {
		return nil, apperr.BadRequest("empty settings request")
	}
	updates := map[string]any{}
	if req.Status != nil {
		switch *req.Status {
		case types.TenantStatusActive, types.TenantStatusSuspended:
			updates["status"] = *req.Status
		default:
			return nil, apperr.BadRequest("invalid tenant status %q", *req.Status)
		}
	}
	if req.CustomDomain != nil {
		d := normalizeHost(*req.CustomDomain)
		switch {
		case d == "":
			updates["custom_domain"] = nil
		case isLoopback(d) || d == s.baseDomain || strings.HasSuffix(d, "."+s.baseDomain):
			return nil, apperr.BadRequest("custom domain %q is reserved", *req.CustomDomain)
		default:
			updates["custom_domain"] = d
		}
	}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if len(updates) == 0 {
		return nil, apperr.BadRequest("no settings to update")
	}

	var before, after models.Tenant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", tenantID).Take(&before).Error; err != nil {
			return err
		}
		if d, ok := updates["custom_domain"].(string); ok {
			var n int64
			if err := tx.Model(&models.Tenant{}).Where("custom_domain = ? AND id <> ?", d, tenantID).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return apperr.BadRequest("custom domain %q already in use", d)
			}
		}
		if err := tx.Model(&models.Tenant{}).Where("id = ?", tenantID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", tenantID).Take(&after).Error
	})
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.NotFound("tenant %s not found", tenantID)
	case errors.Is(err, apperr.ErrBadRequest):
		return nil, err
	case err != nil:
		return nil, apperr.Internal("update tenant settings", err)
	}

	for _, t := range []*models.Tenant{&before, &after} {
		if err := s.InvalidateTenant(ctx, t); err != nil {
			logctx.FromCtx(ctx, s.log).Warnw("tenant_cache_invalidate_deferred", "tenant_id", tenantID, "err", err)
		}
	}
	logctx.FromCtx(ctx, s.log).Infow("tenant_settings_updated", "tenant_id", tenantID, "fields", len(updates))
	return &after, nil
}
