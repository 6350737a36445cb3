package inventory

import (
	"time"

	"github.com/erp/costing/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductCosting is the costing configuration of a product as seen by the engine.
// The engine only reads it; the product catalog owns it.
type ProductCosting struct {
	TenantID     uuid.UUID
	ProductID    uuid.UUID
	CostMethod   strategy.CostMethod
	StandardCost decimal.Decimal
	UpdatedAt    time.Time
}

// NewProductCosting validates a catalog entry strictly
func NewProductCosting(tenantID, productID uuid.UUID, method string, standardCost decimal.Decimal) (*ProductCosting, error) {
	costMethod, err := strategy.ParseCostMethod(method)
	if err != nil {
		return nil, err
	}
	if standardCost.IsNegative() {
		return nil, ErrInvalidCost
	}
	return &ProductCosting{
		TenantID:     tenantID,
		ProductID:    productID,
		CostMethod:   costMethod,
		StandardCost: standardCost,
		UpdatedAt:    time.Now(),
	}, nil
}

// Method returns the method valuation dispatches on.
// Missing or unrecognized values fall back to weighted average.
func (p *ProductCosting) Method() strategy.CostMethod {
	return strategy.ResolveCostMethod(string(p.CostMethod))
}
