package cost

import (
	"context"
	"sort"

	"github.com/erp/costing/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// layeredCostStrategy walks active batches in acquisition order, taking from each
// until the requested quantity is covered or the batches run out. FIFO and LIFO
// differ only in the order.
type layeredCostStrategy struct {
	strategy.BaseStrategy
	method strategy.CostMethod
	order  strategy.BatchOrder
}

// Method returns the costing method
func (s *layeredCostStrategy) Method() strategy.CostMethod {
	return s.method
}

// Allocate builds a per-batch allocation for costCtx.Quantity.
// A shortfall is priced at zero and reported on the result rather than as an error.
func (s *layeredCostStrategy) Allocate(
	ctx context.Context,
	costCtx strategy.CostContext,
	source strategy.BatchSource,
) (*strategy.CostAllocation, error) {
	alloc := newAllocation(costCtx, s.method)
	if !costCtx.Quantity.IsPositive() {
		return alloc, nil
	}

	batches, err := source.ActiveBatches(ctx, s.order)
	if err != nil {
		return nil, err
	}
	s.sortBatches(batches)

	remaining := costCtx.Quantity
	for _, batch := range batches {
		if !remaining.IsPositive() {
			break
		}
		if !batch.Quantity.IsPositive() {
			continue
		}

		taken := decimal.Min(remaining, batch.Quantity)
		lineCost := taken.Mul(batch.UnitCost)
		alloc.BatchesUsed = append(alloc.BatchesUsed, strategy.BatchUsage{
			BatchID:       batch.ID,
			BatchNumber:   batch.BatchNumber,
			QuantityTaken: taken,
			UnitCost:      batch.UnitCost,
			LineCost:      lineCost,
		})
		alloc.TotalCost = alloc.TotalCost.Add(lineCost)
		remaining = remaining.Sub(taken)
	}

	alloc.AllocatedQuantity = costCtx.Quantity.Sub(remaining)
	alloc.Shortfall = remaining
	alloc.UnitCost = alloc.TotalCost.DivRound(costCtx.Quantity, costCtx.UnitCostPrecision())
	return alloc, nil
}

// sortBatches enforces the walk order even if the source returns rows unordered.
// The sort is stable so ties keep the source's order.
func (s *layeredCostStrategy) sortBatches(batches []strategy.CostBatch) {
	if s.order == strategy.BatchOrderNewestFirst {
		sort.SliceStable(batches, func(i, j int) bool {
			return batches[i].ReceivedAt.After(batches[j].ReceivedAt)
		})
		return
	}
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].ReceivedAt.Before(batches[j].ReceivedAt)
	})
}

func newAllocation(costCtx strategy.CostContext, method strategy.CostMethod) *strategy.CostAllocation {
	return &strategy.CostAllocation{
		TenantID:          costCtx.TenantID,
		ProductID:         costCtx.ProductID,
		WarehouseID:       costCtx.WarehouseID,
		Method:            method,
		RequestedQuantity: costCtx.Quantity,
		AllocatedQuantity: decimal.Zero,
		Shortfall:         decimal.Zero,
		UnitCost:          decimal.Zero,
		TotalCost:         decimal.Zero,
		BatchesUsed:       []strategy.BatchUsage{},
	}
}
