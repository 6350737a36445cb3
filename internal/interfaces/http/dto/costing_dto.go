package dto

import (
	"time"

	"github.com/erp/costing/internal/domain/inventory"
	"github.com/erp/costing/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Decimal values travel as strings so no precision is lost in JSON.

// ValuationRequest asks what consuming a quantity would cost
type ValuationRequest struct {
	ProductID   string `json:"product_id" binding:"required,uuid"`
	WarehouseID string `json:"warehouse_id" binding:"required,uuid"`
	Quantity    string `json:"quantity" binding:"required,decimal"`
	// CostMethod overrides the product's configured method when set
	CostMethod string `json:"cost_method" binding:"omitempty,cost_method"`
	// StandardCost is used with a standard CostMethod override
	StandardCost string `json:"standard_cost" binding:"omitempty,decimal"`
}

// CommitRequest applies a previously quoted allocation
type CommitRequest struct {
	Allocation *strategy.CostAllocation `json:"allocation" binding:"required"`
	SourceType string                   `json:"source_type" binding:"omitempty,max=50"`
	SourceID   string                   `json:"source_id" binding:"omitempty,max=100"`
	LineRef    string                   `json:"line_ref" binding:"omitempty,max=100"`
}

// Ref returns the consumption reference, zero when none was sent
func (r CommitRequest) Ref() inventory.ConsumptionRef {
	return inventory.ConsumptionRef{
		SourceType: inventory.SourceType(r.SourceType),
		SourceID:   r.SourceID,
		LineRef:    r.LineRef,
	}
}

// ReceiptRequest records stock arriving at a warehouse
type ReceiptRequest struct {
	ProductID   string `json:"product_id" binding:"required,uuid"`
	WarehouseID string `json:"warehouse_id" binding:"required,uuid"`
	Quantity    string `json:"quantity" binding:"required,decimal"`
	UnitCost    string `json:"unit_cost" binding:"required,decimal"`
	BatchNumber string `json:"batch_number" binding:"omitempty,max=50"`
	Branch      string `json:"branch" binding:"omitempty,max=100"`
	ExpiryDate  string `json:"expiry_date" binding:"omitempty"`
	ReceivedAt  string `json:"received_at" binding:"omitempty"`
	SourceType  string `json:"source_type" binding:"omitempty,max=50"`
	SourceID    string `json:"source_id" binding:"omitempty,max=100"`
}

// AdjustmentRequest applies a signed correction to one batch
type AdjustmentRequest struct {
	Delta  string `json:"delta" binding:"required,decimal"`
	Reason string `json:"reason" binding:"required,max=255"`
}

// ProductCostingRequest configures a product's cost method
type ProductCostingRequest struct {
	CostMethod   string `json:"cost_method" binding:"required"`
	StandardCost string `json:"standard_cost" binding:"omitempty,decimal"`
}

// ProductCostingResponse is the API view of a product's costing configuration
type ProductCostingResponse struct {
	ProductID    uuid.UUID       `json:"product_id"`
	CostMethod   string          `json:"cost_method"`
	StandardCost decimal.Decimal `json:"standard_cost"`
	UpdatedAt    *time.Time      `json:"updated_at,omitempty"`
}

// ToProductCostingResponse converts a configuration; a zero UpdatedAt means the default was used
func ToProductCostingResponse(p *inventory.ProductCosting) ProductCostingResponse {
	resp := ProductCostingResponse{
		ProductID:    p.ProductID,
		CostMethod:   p.Method().String(),
		StandardCost: p.StandardCost,
	}
	if !p.UpdatedAt.IsZero() {
		updated := p.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}

// BatchListQuery selects the active batches of one product at one warehouse
type BatchListQuery struct {
	ProductID   string `form:"product_id" binding:"required,uuid"`
	WarehouseID string `form:"warehouse_id" binding:"required,uuid"`
	// Order is fifo (oldest first, the default) or lifo
	Order string `form:"order" binding:"omitempty,oneof=fifo lifo"`
}

// BatchOrder maps the query order onto the ledger walk order
func (q BatchListQuery) BatchOrder() strategy.BatchOrder {
	if q.Order == "lifo" {
		return strategy.BatchOrderNewestFirst
	}
	return strategy.BatchOrderOldestFirst
}
