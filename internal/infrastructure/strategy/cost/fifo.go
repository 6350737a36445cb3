package cost

import (
	"github.com/erp/costing/internal/domain/shared/strategy"
)

// FIFOCostStrategy implements First-In-First-Out cost allocation
type FIFOCostStrategy struct {
	layeredCostStrategy
}

// NewFIFOCostStrategy creates a new FIFO cost strategy
func NewFIFOCostStrategy() *FIFOCostStrategy {
	return &FIFOCostStrategy{
		layeredCostStrategy: layeredCostStrategy{
			BaseStrategy: strategy.NewBaseStrategy(
				"fifo",
				strategy.StrategyTypeCost,
				"First-In-First-Out: consume the oldest active batches first",
			),
			method: strategy.CostMethodFIFO,
			order:  strategy.BatchOrderOldestFirst,
		},
	}
}

var _ strategy.CostingStrategy = (*FIFOCostStrategy)(nil)
