package webhook

import (
	"go.uber.org/fx"

	"github.com/fatflowers/courseshop/internal/app/service/connect"
	"github.com/fatflowers/courseshop/internal/app/service/settlement"
	"github.com/fatflowers/courseshop/internal/app/service/subscription"
)

var Module = fx.Options(
	fx.Provide(
		NewService,
		func(s *settlement.Service) Finalizer { return s },
		func(s *subscription.Service) Lifecycle { return s },
		func(s *connect.Service) Reconciler { return s },
	),
)
