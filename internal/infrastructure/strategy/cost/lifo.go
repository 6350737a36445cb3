package cost

import (
	"github.com/erp/costing/internal/domain/shared/strategy"
)

// LIFOCostStrategy implements Last-In-First-Out cost allocation
type LIFOCostStrategy struct {
	layeredCostStrategy
}

// NewLIFOCostStrategy creates a new LIFO cost strategy
func NewLIFOCostStrategy() *LIFOCostStrategy {
	return &LIFOCostStrategy{
		layeredCostStrategy: layeredCostStrategy{
			BaseStrategy: strategy.NewBaseStrategy(
				"lifo",
				strategy.StrategyTypeCost,
				"Last-In-First-Out: consume the newest active batches first",
			),
			method: strategy.CostMethodLIFO,
			order:  strategy.BatchOrderNewestFirst,
		},
	}
}

var _ strategy.CostingStrategy = (*LIFOCostStrategy)(nil)
