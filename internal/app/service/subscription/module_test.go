package subscription

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/courseshop/pkg/config"
	"github.com/fatflowers/courseshop/pkg/types"
)

func TestCheckPlanPrices(t *testing.T) {
	log := zap.NewNop().Sugar()
	cfg := func(prices ...*types.PlanPrice) *cfgpkg.Config {
		return &cfgpkg.Config{Billing: cfgpkg.BillingConfig{PlanPrices: prices}}
	}

	require.NoError(t, CheckPlanPrices(cfg(), log))
	require.NoError(t, CheckPlanPrices(cfg(
		&types.PlanPrice{PriceID: "price_starter", Plan: types.PlanStarter},
		&types.PlanPrice{PriceID: "price_starter_yearly", Plan: types.PlanStarter},
	), log))

	require.ErrorContains(t, CheckPlanPrices(cfg(&types.PlanPrice{Plan: types.PlanGrowth}), log), "price_id is required")
	require.ErrorContains(t, CheckPlanPrices(cfg(&types.PlanPrice{PriceID: "p", Plan: "enterprise"}), log), "unknown plan")
	require.ErrorContains(t, CheckPlanPrices(cfg(
		&types.PlanPrice{PriceID: "p", Plan: types.PlanScale},
		&types.PlanPrice{PriceID: "p", Plan: types.PlanGrowth},
	), log), "duplicate price_id")
}
