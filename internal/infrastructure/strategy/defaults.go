package strategy

import (
	"github.com/erp/costing/internal/domain/shared/strategy"
	"github.com/erp/costing/internal/infrastructure/strategy/cost"
)

// NewRegistryWithDefaults creates a registry with all four costing strategies registered
func NewRegistryWithDefaults() (*CostStrategyRegistry, error) {
	r := NewCostStrategyRegistry()

	for _, s := range []strategy.CostingStrategy{
		cost.NewFIFOCostStrategy(),
		cost.NewLIFOCostStrategy(),
		cost.NewWeightedAverageCostStrategy(),
		cost.NewStandardCostStrategy(),
	} {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}
