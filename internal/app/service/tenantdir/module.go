package tenantdir

import (
	"context"

	"go.uber.org/fx"

	"github.com/fatflowers/courseshop/internal/models"
)

// Invalidator is what tenant writers depend on.
type Invalidator interface {
	InvalidateTenant(ctx context.Context, t *models.Tenant) error
}

var Module = fx.Options(
	fx.Provide(NewService),
	fx.Provide(func(s *Service) Invalidator { return s }),
)
