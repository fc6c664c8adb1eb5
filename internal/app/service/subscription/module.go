package subscription

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/courseshop/pkg/config"
	"github.com/fatflowers/courseshop/pkg/types"
)

// CheckPlanPrices rejects a billing.plan_prices table that names an unknown
// plan, repeats a price id or leaves one empty. Plans without a price are
// only warned about: tenants cannot start checkout for them.
func CheckPlanPrices(cfg *cfgpkg.Config, log *zap.SugaredLogger) error {
	seen := map[string]bool{}
	priced := map[types.Plan]bool{}
	for i, p := range cfg.Billing.PlanPrices {
		if p == nil || p.PriceID == "" {
			return fmt.Errorf("billing.plan_prices[%d]: price_id is required", i)
		}
		if _, err := types.GetPlan(p.Plan); err != nil {
			return fmt.Errorf("billing.plan_prices[%d]: %w", i, err)
		}
		if seen[p.PriceID] {
			return fmt.Errorf("billing.plan_prices[%d]: duplicate price_id %s", i, p.PriceID)
		}
		seen[p.PriceID] = true
		priced[p.Plan] = true
	}
	for _, plan := range types.Plans() {
		if !priced[plan] {
			log.Warnw("plan has no configured price", "plan", plan)
		}
	}
	return nil
}

var Module = fx.Options(
	fx.Provide(NewService),
	fx.Invoke(CheckPlanPrices),
)
