package cost

import (
	"context"

	"github.com/erp/costing/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// WeightedAverageCostStrategy prices a quantity at the blended cost of the whole pool
// of active batches. It never names batches, so its allocations are never committed
// against specific rows.
type WeightedAverageCostStrategy struct {
	strategy.BaseStrategy
}

// NewWeightedAverageCostStrategy creates a new weighted average cost strategy
func NewWeightedAverageCostStrategy() *WeightedAverageCostStrategy {
	return &WeightedAverageCostStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"weighted_average",
			strategy.StrategyTypeCost,
			"Weighted average over all active batches",
		),
	}
}

// Method returns the costing method
func (s *WeightedAverageCostStrategy) Method() strategy.CostMethod {
	return strategy.CostMethodWeightedAverage
}

// Allocate computes the pool unit cost and prices costCtx.Quantity at it.
// The average is recomputed over every active batch on each call.
func (s *WeightedAverageCostStrategy) Allocate(
	ctx context.Context,
	costCtx strategy.CostContext,
	source strategy.BatchSource,
) (*strategy.CostAllocation, error) {
	alloc := newAllocation(costCtx, strategy.CostMethodWeightedAverage)

	batches, err := source.ActiveBatches(ctx, strategy.BatchOrderOldestFirst)
	if err != nil {
		return nil, err
	}

	totalValue, totalQty := PoolTotals(batches)
	if totalQty.IsZero() {
		return alloc, nil
	}

	precision := costCtx.UnitCostPrecision()
	alloc.UnitCost = totalValue.DivRound(totalQty, precision)
	if costCtx.Quantity.IsPositive() {
		alloc.AllocatedQuantity = costCtx.Quantity
		// computed from pool totals, not from the rounded unit cost
		alloc.TotalCost = totalValue.Mul(costCtx.Quantity).DivRound(totalQty, precision)
	}
	return alloc, nil
}

// PoolTotals returns the total value and total quantity of the active batches
func PoolTotals(batches []strategy.CostBatch) (decimal.Decimal, decimal.Decimal) {
	totalValue := decimal.Zero
	totalQty := decimal.Zero
	for _, batch := range batches {
		if !batch.Quantity.IsPositive() {
			continue
		}
		totalValue = totalValue.Add(batch.Quantity.Mul(batch.UnitCost))
		totalQty = totalQty.Add(batch.Quantity)
	}
	return totalValue, totalQty
}

var _ strategy.CostingStrategy = (*WeightedAverageCostStrategy)(nil)
