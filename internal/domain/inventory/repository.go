package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/costing/internal/domain/shared/strategy"
	"github.com/google/uuid"
)

// StockBatchRepository is the durable store behind the batch ledger.
// Methods that take a lock must be called inside a transaction.
type StockBatchRepository interface {
	// FindByID finds a batch by id without locking
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*StockBatch, error)

	// FindByIdentity finds a batch by its identity key
	FindByIdentity(ctx context.Context, tenantID, productID, warehouseID uuid.UUID, batchNumber string) (*StockBatch, error)

	// FindActive returns active batches with positive quantity ordered by acquisition time
	FindActive(ctx context.Context, tenantID, productID, warehouseID uuid.UUID, order strategy.BatchOrder) ([]StockBatch, error)

	// LockByID loads a batch holding an exclusive row lock until the transaction ends
	LockByID(ctx context.Context, tenantID, id uuid.UUID) (*StockBatch, error)

	// Upsert inserts the receipt as a new batch or adds its quantity to the existing batch
	// with the same identity, preserving that batch's unit cost. Uniqueness is enforced by the store.
	// The returned batch is locked for the rest of the transaction.
	Upsert(ctx context.Context, receipt BatchReceipt) (*StockBatch, error)

	// Insert creates the receipt as a new batch and never merges. created is false when
	// a batch with the same identity already exists; that batch is left untouched.
	Insert(ctx context.Context, receipt BatchReceipt) (batch *StockBatch, created bool, err error)

	// Save persists quantity and status changes of a locked batch
	Save(ctx context.Context, batch *StockBatch) error
}

// InventoryTransactionRepository stores the immutable movement log
type InventoryTransactionRepository interface {
	Create(ctx context.Context, tx *InventoryTransaction) error
	FindByBatch(ctx context.Context, tenantID, batchID uuid.UUID) ([]InventoryTransaction, error)
}

// BatchNumberSequence hands out per-day sequence numbers for synthesized batch numbers
type BatchNumberSequence interface {
	Next(ctx context.Context, tenantID uuid.UUID, day time.Time) (int64, error)
}

// CommitLedger records applied consumption references.
// Record returns ErrDuplicateCommit when the reference already exists.
type CommitLedger interface {
	Record(ctx context.Context, record *CommitRecord) error
}

// ProductCostingRepository reads and writes product costing configuration
type ProductCostingRepository interface {
	FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) (*ProductCosting, error)
	Save(ctx context.Context, costing *ProductCosting) error
}

// FormatBatchNumber renders a synthesized batch number such as B20261018-0007
func FormatBatchNumber(prefix string, day time.Time, seq int64) string {
	return fmt.Sprintf("%s%s-%04d", prefix, day.UTC().Format("20060102"), seq)
}
