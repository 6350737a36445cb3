package inventory

import (
	"time"

	"github.com/erp/costing/internal/domain/shared"
	"github.com/erp/costing/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchStatus represents the consumption state of a batch
type BatchStatus string

const (
	BatchStatusActive   BatchStatus = "active"
	BatchStatusDepleted BatchStatus = "depleted"
)

// String returns the string representation of the status
func (s BatchStatus) String() string {
	return string(s)
}

// BatchMetadata holds the descriptive fields of a batch
type BatchMetadata struct {
	Branch     string
	ExpiryDate *time.Time
	// ReceivedAt orders the batch for FIFO/LIFO; zero means now
	ReceivedAt time.Time
}

// StockBatch is one lot of a product held at a warehouse, acquired at a single unit cost.
// Identity is (tenant, product, warehouse, batch number). Batches are never deleted;
// quantity == 0 if and only if the status is depleted.
type StockBatch struct {
	shared.BaseEntity
	TenantID    uuid.UUID
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	BatchNumber string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	Status      BatchStatus
	ReceivedAt  time.Time
	Branch      string
	ExpiryDate  *time.Time
}

// NewStockBatch creates an active batch for newly received stock
func NewStockBatch(
	tenantID, productID, warehouseID uuid.UUID,
	batchNumber string,
	quantity, unitCost decimal.Decimal,
	meta BatchMetadata,
) (*StockBatch, error) {
	if !quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	if unitCost.IsNegative() {
		return nil, ErrInvalidCost
	}
	if batchNumber == "" {
		return nil, shared.NewDomainError("INVALID_BATCH_NUMBER", "Batch number cannot be empty")
	}

	base := shared.NewBaseEntity()
	receivedAt := meta.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = base.CreatedAt
	}

	return &StockBatch{
		BaseEntity:  base,
		TenantID:    tenantID,
		ProductID:   productID,
		WarehouseID: warehouseID,
		BatchNumber: batchNumber,
		Quantity:    quantity,
		UnitCost:    unitCost,
		Status:      BatchStatusActive,
		ReceivedAt:  receivedAt,
		Branch:      meta.Branch,
		ExpiryDate:  meta.ExpiryDate,
	}, nil
}

// IsActive returns true if the batch can be selected for consumption
func (b *StockBatch) IsActive() bool {
	return b.Status == BatchStatusActive && b.Quantity.IsPositive()
}

// IsDepleted returns true once the batch has been fully consumed
func (b *StockBatch) IsDepleted() bool {
	return b.Status == BatchStatusDepleted
}

// TotalValue returns the remaining value of the batch
func (b *StockBatch) TotalValue() decimal.Decimal {
	return b.Quantity.Mul(b.UnitCost)
}

// Decrement consumes quantity from the batch and returns the amount actually taken.
// A request exceeding the remaining quantity by no more than tolerance is clamped to it;
// anything larger is an invariant violation and leaves the batch untouched.
func (b *StockBatch) Decrement(quantity, tolerance decimal.Decimal) (decimal.Decimal, error) {
	if !quantity.IsPositive() {
		return decimal.Zero, ErrInvalidQuantity
	}
	if quantity.GreaterThan(b.Quantity.Add(tolerance)) {
		return decimal.Zero, NewInvariantViolation(b.BatchNumber, quantity, b.Quantity)
	}

	taken := decimal.Min(quantity, b.Quantity)
	b.Quantity = b.Quantity.Sub(taken)
	b.syncStatus()
	b.Touch()
	return taken, nil
}

// Receive adds quantity to the batch, reactivating it if it was depleted.
// The unit cost of the existing lot is preserved.
func (b *StockBatch) Receive(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	b.Quantity = b.Quantity.Add(quantity)
	b.syncStatus()
	b.Touch()
	return nil
}

// Adjust applies a signed correction to the batch quantity.
// Results below zero by more than tolerance are rejected; dust within tolerance clamps to zero.
func (b *StockBatch) Adjust(delta, tolerance decimal.Decimal) error {
	if delta.IsZero() {
		return ErrInvalidQuantity
	}
	result := b.Quantity.Add(delta)
	if result.IsNegative() {
		if result.Abs().GreaterThan(tolerance) {
			return NewInvariantViolation(b.BatchNumber, delta.Neg(), b.Quantity)
		}
		result = decimal.Zero
	}
	b.Quantity = result
	b.syncStatus()
	b.Touch()
	return nil
}

func (b *StockBatch) syncStatus() {
	if b.Quantity.IsPositive() {
		b.Status = BatchStatusActive
		return
	}
	b.Quantity = decimal.Zero
	b.Status = BatchStatusDepleted
}

// CostBatch returns the costing view of the batch
func (b *StockBatch) CostBatch() strategy.CostBatch {
	return strategy.CostBatch{
		ID:          b.ID,
		BatchNumber: b.BatchNumber,
		Quantity:    b.Quantity,
		UnitCost:    b.UnitCost,
		ReceivedAt:  b.ReceivedAt,
	}
}

// BatchReceipt describes incoming stock to be merged into the ledger
type BatchReceipt struct {
	TenantID    uuid.UUID
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	// BatchNumber is optional; an empty value asks the ledger to synthesize one
	BatchNumber string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	Metadata    BatchMetadata
}

// Validate checks the receipt before it reaches the store
func (r BatchReceipt) Validate() error {
	if r.TenantID == uuid.Nil || r.ProductID == uuid.Nil || r.WarehouseID == uuid.Nil {
		return shared.NewDomainError("INVALID_INPUT", "Tenant, product and warehouse are required")
	}
	if !r.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if r.UnitCost.IsNegative() {
		return ErrInvalidCost
	}
	return nil
}
