package checkout

import (
	"go.uber.org/fx"

	stripeclient "github.com/fatflowers/courseshop/internal/platform/stripe"
)

var Module = fx.Options(
	fx.Provide(func(c *stripeclient.Client) Gateway { return c }),
	fx.Provide(NewService),
)
