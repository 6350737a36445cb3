package cost

import (
	"context"

	"github.com/erp/costing/internal/domain/shared/strategy"
)

// StandardCostStrategy prices at the product's configured standard cost
type StandardCostStrategy struct {
	strategy.BaseStrategy
}

// NewStandardCostStrategy creates a new standard cost strategy
func NewStandardCostStrategy() *StandardCostStrategy {
	return &StandardCostStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"standard",
			strategy.StrategyTypeCost,
			"Fixed standard cost independent of batches",
		),
	}
}

// Method returns the costing method
func (s *StandardCostStrategy) Method() strategy.CostMethod {
	return strategy.CostMethodStandard
}

// Allocate never reads batches; the source may be nil.
func (s *StandardCostStrategy) Allocate(
	_ context.Context,
	costCtx strategy.CostContext,
	_ strategy.BatchSource,
) (*strategy.CostAllocation, error) {
	alloc := newAllocation(costCtx, strategy.CostMethodStandard)
	alloc.UnitCost = costCtx.StandardCost
	if costCtx.Quantity.IsPositive() {
		alloc.AllocatedQuantity = costCtx.Quantity
		alloc.TotalCost = costCtx.StandardCost.Mul(costCtx.Quantity)
	}
	return alloc, nil
}

var _ strategy.CostingStrategy = (*StandardCostStrategy)(nil)
