package types

import "fmt"

type Plan string

const (
	PlanStarter Plan = "starter"
	PlanGrowth  Plan = "growth"
	PlanScale   Plan = "scale"
)

// PlanDefinition is a platform plan with its fixed commission, expressed in
// basis points of the gross sale amount.
type PlanDefinition struct {
	ID                Plan  `json:"id"`
	CommissionRateBps int64 `json:"commission_rate_bps"`
}

var planCatalogue = map[Plan]PlanDefinition{
	PlanStarter: {ID: PlanStarter, CommissionRateBps: 1000},
	PlanGrowth:  {ID: PlanGrowth, CommissionRateBps: 500},
	PlanScale:   {ID: PlanScale, CommissionRateBps: 250},
}

func GetPlan(id Plan) (PlanDefinition, error) {
	def, ok := planCatalogue[id]
	if !ok {
		return PlanDefinition{}, fmt.Errorf("unknown plan: %s", id)
	}
	return def, nil
}

func Plans() []Plan {
	return []Plan{PlanStarter, PlanGrowth, PlanScale}
}

// PlanPrice maps a provider price identifier to a platform plan.
type PlanPrice struct {
	PriceID string `json:"price_id" mapstructure:"price_id"`
	Plan    Plan   `json:"plan" mapstructure:"plan"`
}
