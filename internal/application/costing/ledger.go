package costing

import (
	"context"
	"time"

	"github.com/erp/costing/internal/domain/inventory"
	"github.com/erp/costing/internal/domain/shared/strategy"
	"github.com/erp/costing/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxSynthesisAttempts bounds how many sequence numbers a receipt may skip over
const maxSynthesisAttempts = 16

// LedgerOptions tunes the batch ledger
type LedgerOptions struct {
	// ClampTolerance is the largest overshoot a decrement may clamp away as rounding dust
	ClampTolerance decimal.Decimal
	// BatchNumberPrefix prefixes synthesized batch numbers
	BatchNumberPrefix string
	// Now returns the current time; nil means time.Now
	Now func() time.Time
}

func (o LedgerOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// BatchLedger applies batch mutations through one set of repositories.
// When those repositories come from a TransactionScope, every mutation and its movement
// record commit together.
type BatchLedger struct {
	repos  TransactionalRepositories
	opts   LedgerOptions
	logger *zap.Logger
}

// NewBatchLedger creates a ledger over repos
func NewBatchLedger(repos TransactionalRepositories, opts LedgerOptions, log *zap.Logger) *BatchLedger {
	if log == nil {
		log = zap.NewNop()
	}
	return &BatchLedger{repos: repos, opts: opts, logger: log}
}

// FindActiveBatches returns active batches with positive quantity in the given order
func (l *BatchLedger) FindActiveBatches(
	ctx context.Context,
	tenantID, productID, warehouseID uuid.UUID,
	order strategy.BatchOrder,
) ([]inventory.StockBatch, error) {
	return l.repos.BatchRepo().FindActive(ctx, tenantID, productID, warehouseID, order)
}

// UpsertBatch merges a receipt into the ledger and appends the INBOUND movement.
// An empty batch number is synthesized from the per-day sequence.
func (l *BatchLedger) UpsertBatch(
	ctx context.Context,
	receipt inventory.BatchReceipt,
	sourceType inventory.SourceType,
	sourceID string,
) (*inventory.StockBatch, error) {
	if err := receipt.Validate(); err != nil {
		return nil, err
	}

	var (
		batch *inventory.StockBatch
		err   error
	)
	if receipt.BatchNumber == "" {
		batch, err = l.insertSynthesized(ctx, receipt)
	} else {
		batch, err = l.repos.BatchRepo().Upsert(ctx, receipt)
	}
	if err != nil {
		return nil, err
	}

	before := batch.Quantity.Sub(receipt.Quantity)
	if before.IsZero() && batch.UpdatedAt.After(batch.CreatedAt) {
		l.logger.Warn("Depleted batch reactivated by receipt",
			zap.String("batch_number", batch.BatchNumber),
			logger.Decimal("quantity", receipt.Quantity),
			logger.Decimal("unit_cost", batch.UnitCost),
		)
	}

	movement := inventory.NewInventoryTransaction(
		batch, inventory.TransactionTypeInbound, receipt.Quantity, before, sourceType, sourceID,
	)
	if err := l.repos.TransactionRepo().Create(ctx, movement); err != nil {
		return nil, err
	}
	return batch, nil
}

// insertSynthesized numbers the receipt from the per-day sequence and creates a new batch.
// A number already taken by a hand-entered batch is skipped, never merged into.
func (l *BatchLedger) insertSynthesized(ctx context.Context, receipt inventory.BatchReceipt) (*inventory.StockBatch, error) {
	day := l.opts.now()
	for attempt := 0; attempt < maxSynthesisAttempts; attempt++ {
		seq, err := l.repos.SequenceRepo().Next(ctx, receipt.TenantID, day)
		if err != nil {
			return nil, err
		}
		receipt.BatchNumber = inventory.FormatBatchNumber(l.opts.BatchNumberPrefix, day, seq)

		batch, created, err := l.repos.BatchRepo().Insert(ctx, receipt)
		if err != nil {
			return nil, err
		}
		if created {
			return batch, nil
		}
		l.logger.Warn("Synthesized batch number already in use, drawing the next one",
			zap.String("batch_number", receipt.BatchNumber),
		)
	}
	return nil, inventory.ErrBatchNumberExhausted
}

// DecrementBatch locks the batch, takes quantity from it and appends the OUTBOUND movement.
// The batch must belong to the given product and warehouse.
// It returns the batch after the decrement and the quantity actually taken, which differs from
// the request only by clamped rounding dust.
func (l *BatchLedger) DecrementBatch(
	ctx context.Context,
	tenantID, productID, warehouseID, batchID uuid.UUID,
	quantity decimal.Decimal,
	ref inventory.ConsumptionRef,
) (*inventory.StockBatch, decimal.Decimal, error) {
	batch, err := l.repos.BatchRepo().LockByID(ctx, tenantID, batchID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if batch.ProductID != productID || batch.WarehouseID != warehouseID {
		return nil, decimal.Zero, inventory.NewBatchMismatchError(batch.BatchNumber, productID, warehouseID)
	}

	before := batch.Quantity
	taken, err := batch.Decrement(quantity, l.opts.ClampTolerance)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if err := l.repos.BatchRepo().Save(ctx, batch); err != nil {
		return nil, decimal.Zero, err
	}

	if batch.IsDepleted() {
		l.logger.Warn("Batch depleted",
			zap.String("batch_number", batch.BatchNumber),
			logger.UUID("batch_id", batch.ID),
		)
	}

	sourceType, sourceID := ref.MovementSource()
	movement := inventory.NewInventoryTransaction(
		batch, inventory.TransactionTypeOutbound, taken, before, sourceType, sourceID,
	)
	if err := l.repos.TransactionRepo().Create(ctx, movement); err != nil {
		return nil, decimal.Zero, err
	}
	return batch, taken, nil
}

// AdjustBatch locks the batch, applies a signed correction and appends the adjustment movement
func (l *BatchLedger) AdjustBatch(
	ctx context.Context,
	tenantID, batchID uuid.UUID,
	delta decimal.Decimal,
	reason string,
) (*inventory.StockBatch, error) {
	batch, err := l.repos.BatchRepo().LockByID(ctx, tenantID, batchID)
	if err != nil {
		return nil, err
	}

	before := batch.Quantity
	wasDepleted := batch.IsDepleted()
	if err := batch.Adjust(delta, l.opts.ClampTolerance); err != nil {
		return nil, err
	}
	if err := l.repos.BatchRepo().Save(ctx, batch); err != nil {
		return nil, err
	}

	if wasDepleted != batch.IsDepleted() {
		l.logger.Warn("Batch status changed by adjustment",
			zap.String("batch_number", batch.BatchNumber),
			zap.String("status", batch.Status.String()),
		)
	}

	txType := inventory.TransactionTypeAdjustmentIncrease
	if delta.IsNegative() {
		txType = inventory.TransactionTypeAdjustmentDecrease
	}
	movement := inventory.NewInventoryTransaction(
		batch, txType, batch.Quantity.Sub(before), before,
		inventory.SourceTypeManualAdjustment, batch.ID.String(),
	).WithReason(reason)
	if err := l.repos.TransactionRepo().Create(ctx, movement); err != nil {
		return nil, err
	}
	return batch, nil
}
