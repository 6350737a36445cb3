package inventory

import (
	"github.com/erp/costing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the direction of a batch movement
type TransactionType string

const (
	// TransactionTypeInbound represents stock received into a batch
	TransactionTypeInbound TransactionType = "INBOUND"
	// TransactionTypeOutbound represents stock consumed from a batch by a commit
	TransactionTypeOutbound TransactionType = "OUTBOUND"
	// TransactionTypeAdjustmentIncrease represents positive batch adjustment
	TransactionTypeAdjustmentIncrease TransactionType = "ADJUSTMENT_INCREASE"
	// TransactionTypeAdjustmentDecrease represents negative batch adjustment
	TransactionTypeAdjustmentDecrease TransactionType = "ADJUSTMENT_DECREASE"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsIncrease returns true if this transaction type increases batch quantity
func (t TransactionType) IsIncrease() bool {
	return t == TransactionTypeInbound || t == TransactionTypeAdjustmentIncrease
}

// SourceType represents the source document type for a movement
type SourceType string

const (
	SourceTypePurchaseOrder    SourceType = "PURCHASE_ORDER"
	SourceTypeSalesOrder       SourceType = "SALES_ORDER"
	SourceTypeProduction       SourceType = "PRODUCTION"
	SourceTypeTransfer         SourceType = "TRANSFER"
	SourceTypeManualAdjustment SourceType = "MANUAL_ADJUSTMENT"
	SourceTypeInitialStock     SourceType = "INITIAL_STOCK"
	// SourceTypeUnreferenced marks movements of commits issued without a consumption reference.
	// It is never accepted as caller input.
	SourceTypeUnreferenced SourceType = "UNREFERENCED"
)

// String returns the string representation of SourceType
func (s SourceType) String() string {
	return string(s)
}

// IsValid returns true if the source type is valid
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypePurchaseOrder,
		SourceTypeSalesOrder,
		SourceTypeProduction,
		SourceTypeTransfer,
		SourceTypeManualAdjustment,
		SourceTypeInitialStock:
		return true
	}
	return false
}

// InventoryTransaction is an immutable record of one batch movement.
// It is written in the same unit of work as the batch mutation it describes.
type InventoryTransaction struct {
	shared.BaseEntity
	TenantID        uuid.UUID
	BatchID         uuid.UUID
	ProductID       uuid.UUID
	WarehouseID     uuid.UUID
	BatchNumber     string
	TransactionType TransactionType
	Quantity        decimal.Decimal // always positive, direction comes from the type
	UnitCost        decimal.Decimal
	TotalCost       decimal.Decimal
	BalanceBefore   decimal.Decimal
	BalanceAfter    decimal.Decimal
	SourceType      SourceType
	SourceID        string
	Reason          string
}

// NewInventoryTransaction records a movement on batch from before to its current quantity
func NewInventoryTransaction(
	batch *StockBatch,
	txType TransactionType,
	quantity decimal.Decimal,
	before decimal.Decimal,
	sourceType SourceType,
	sourceID string,
) *InventoryTransaction {
	return &InventoryTransaction{
		BaseEntity:      shared.NewBaseEntity(),
		TenantID:        batch.TenantID,
		BatchID:         batch.ID,
		ProductID:       batch.ProductID,
		WarehouseID:     batch.WarehouseID,
		BatchNumber:     batch.BatchNumber,
		TransactionType: txType,
		Quantity:        quantity.Abs(),
		UnitCost:        batch.UnitCost,
		TotalCost:       quantity.Abs().Mul(batch.UnitCost),
		BalanceBefore:   before,
		BalanceAfter:    batch.Quantity,
		SourceType:      sourceType,
		SourceID:        sourceID,
	}
}

// WithReason attaches a free-form reason, used by adjustments
func (t *InventoryTransaction) WithReason(reason string) *InventoryTransaction {
	t.Reason = reason
	return t
}
